// Command newsclf runs the fake news classification pipeline.
//
//	newsclf [-config file] [-log-level level] <command> [flags]
//
// Commands:
//
//	run        clean, explore, features, train, evaluate and export in one go
//	clean      load the input CSV, drop nulls and duplicates, normalize text
//	explore    print dataset statistics and render exploration plots
//	features   fit TF-IDF on the cleaned CSV and save vectorizer, matrix and labels
//	train      split the features and fit logistic regression
//	evaluate   score the saved model on the held-out split and render plots
//	export     copy model and vectorizer into the deployment directory
//	compare    compare logistic regression, linear SVM, random forest and naive Bayes
//	predict    classify texts given as arguments, -file or -feed
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/ezoic/newsclf/internal/config"
	"github.com/ezoic/newsclf/internal/stages"
	"github.com/ezoic/newsclf/pkg/errors"
	"github.com/ezoic/newsclf/pkg/log"
)

var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		if !errors.Is(err, errUsage) {
			log.LogError(err, "newsclf failed")
		}
		os.Exit(1)
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: newsclf [-config file] [-log-level level] <run|clean|explore|features|train|evaluate|export|compare|predict> [flags]")
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	global := flag.NewFlagSet("newsclf", flag.ContinueOnError)
	global.SetOutput(stderr)
	global.Usage = func() {
		usage(stderr)
		global.PrintDefaults()
	}
	configPath := global.String("config", "", "YAML config file (default $NEWSCLF_CONFIG)")
	logLevel := global.String("log-level", "", "log level: debug, info, warn, error")
	if err := global.Parse(args); err != nil {
		return errUsage
	}
	if global.NArg() == 0 {
		global.Usage()
		return errUsage
	}

	cfg := config.Load(*configPath)
	if *logLevel != "" {
		cfg.Log.Level = strings.ToLower(*logLevel)
	}
	log.SetupLogger(cfg.Log.Level)

	r, err := stages.New(cfg, stdout)
	if err != nil {
		return err
	}

	cmd, cmdArgs := global.Arg(0), global.Args()[1:]
	if cmd != "predict" && len(cmdArgs) > 0 {
		fmt.Fprintf(stderr, "%s takes no arguments\n", cmd)
		return errUsage
	}

	switch cmd {
	case "run":
		_, err = r.Run()
	case "clean":
		_, err = r.Clean()
	case "explore":
		err = explore(r)
	case "features":
		err = features(r)
	case "train":
		err = train(r)
	case "evaluate":
		err = evaluate(r)
	case "export":
		_, err = r.Export()
	case "compare":
		err = compare(r)
	case "predict":
		err = predict(ctx, r, cmdArgs, stderr)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", cmd)
		usage(stderr)
		return errUsage
	}
	return err
}

func explore(r *stages.Runner) error {
	data, err := r.LoadCleaned()
	if err != nil {
		return err
	}
	_, err = r.Explore(data)
	return err
}

func features(r *stages.Runner) error {
	data, err := r.LoadCleaned()
	if err != nil {
		return err
	}
	_, err = r.Extract(data)
	return err
}

func train(r *stages.Runner) error {
	f, err := r.LoadFeatures()
	if err != nil {
		return err
	}
	_, err = r.Train(f)
	return err
}

func evaluate(r *stages.Runner) error {
	tr, err := r.LoadTrained()
	if err != nil {
		return err
	}
	_, err = r.Evaluate(tr)
	return err
}

func compare(r *stages.Runner) error {
	f, err := r.LoadFeatures()
	if err != nil {
		return err
	}
	_, err = r.Compare(f)
	return err
}

func predict(ctx context.Context, r *stages.Runner, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("predict", flag.ContinueOnError)
	fs.SetOutput(stderr)
	file := fs.String("file", "", "read one document per line from `path` (- for stdin)")
	feedURL := fs.String("feed", "", "classify the items of the RSS/Atom feed at `url`")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	sources := 0
	for _, set := range []bool{*file != "", *feedURL != "", fs.NArg() > 0} {
		if set {
			sources++
		}
	}
	if sources > 1 {
		fmt.Fprintln(stderr, "predict: give texts, -file or -feed, not several")
		return errUsage
	}

	switch {
	case *feedURL != "":
		_, err := r.PredictFeed(ctx, *feedURL)
		return err
	case *file != "":
		texts, err := readDocuments(*file)
		if err != nil {
			return err
		}
		_, err = r.Predict(texts)
		return err
	case fs.NArg() > 0:
		_, err := r.Predict(fs.Args())
		return err
	default:
		_, err := r.Predict([]string{stages.SampleArticle})
		return err
	}
}

func readDocuments(path string) ([]string, error) {
	if path == "-" {
		return stages.ReadLines(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()
	return stages.ReadLines(f)
}
