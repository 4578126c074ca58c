package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alissonfar/newApp-sub001/config"
	"github.com/alissonfar/newApp-sub001/consts"
	"github.com/alissonfar/newApp-sub001/engine"
	"github.com/alissonfar/newApp-sub001/ledger"
	"github.com/alissonfar/newApp-sub001/plaindb"
	"github.com/alissonfar/newApp-sub001/rules"
	"github.com/alissonfar/newApp-sub001/server"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

func newLogger(development bool) (*zap.Logger, error) {
	if development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func usage(flagSet *flag.FlagSet) string {
	oldOutput := flagSet.Output()
	buf := bytes.NewBuffer(nil)
	flagSet.SetOutput(buf)
	flagSet.Usage()
	flagSet.SetOutput(oldOutput)
	return buf.String()
}

// requireFlags fails for every "Required: " flag left empty by both the command line and the environment
func requireFlags(flagSet *flag.FlagSet) error {
	var missingFlags []string
	flagSet.VisitAll(func(f *flag.Flag) {
		if strings.HasPrefix(f.Usage, "Required: ") && f.Value.String() == "" {
			missingFlags = append(missingFlags, f.Name)
		}
	})
	if len(missingFlags) > 0 {
		return errors.Errorf("Missing required flags: %s", missingFlags)
	}
	return nil
}

type options struct {
	dataDir        string
	versionControl bool
	development    bool
	isServer       bool
	port           uint16
	simulate       string
	execute        string
	undo           string
}

func parseFlags(args []string, cfg config.Config) (opts options, printVersion bool, usageErr bool, err error) {
	flagSet := flag.NewFlagSet("rules", flag.ContinueOnError)
	dataDir := flagSet.String("data", cfg.DataDir, "Required: Path to a database directory. Env: RULES_DATA")
	versionControl := flagSet.Bool("vcs", cfg.VersionControl, "Commit every database write to a git repository in the data directory. Env: RULES_VCS")
	isServer := flagSet.Bool("server", false, "Starts the HTTP API server until terminated")
	serverPort := flagSet.Uint("port", 0, fmt.Sprintf("Sets the port the server listens on. Defaults to RULES_PORT or %d. Implies -server", config.DefaultPort))
	simulate := flagSet.String("simulate", "", "Print the changes the rule with this ID would make, without making them")
	execute := flagSet.String("execute", "", "Run the rule with this ID against its owner's transactions")
	undo := flagSet.String("undo", "", "Revert the last execution of the rule with this ID")
	requestVersion := flagSet.Bool("version", false, "Print the version and exit")
	if err := flagSet.Parse(args); err != nil {
		return options{}, false, true, err
	}
	if *requestVersion {
		return options{}, true, false, nil
	}
	if err := requireFlags(flagSet); err != nil {
		return options{}, false, true, errors.Errorf("%s\n%s", err.Error(), usage(flagSet))
	}

	*isServer = *isServer || *serverPort != 0
	if *serverPort == 0 {
		*serverPort = cfg.Port
	}
	port := uint16(*serverPort)
	if uint(port) != *serverPort {
		return options{}, false, true, errors.Errorf("Port number must be a positive 16-bit integer: %d", *serverPort)
	}

	operations := 0
	for _, set := range []bool{*isServer, *simulate != "", *execute != "", *undo != ""} {
		if set {
			operations++
		}
	}
	if operations != 1 {
		return options{}, false, true, errors.Errorf("Exactly one of -server, -simulate, -execute, or -undo is required\n%s", usage(flagSet))
	}

	return options{
		dataDir:        *dataDir,
		versionControl: *versionControl,
		development:    cfg.Development,
		isServer:       *isServer,
		port:           port,
		simulate:       *simulate,
		execute:        *execute,
		undo:           *undo,
	}, false, false, nil
}

func start(ctx context.Context, out io.Writer, opts options, db plaindb.DB, logger *zap.Logger) error {
	txnStore, err := ledger.NewStore(db)
	if err != nil {
		return err
	}
	ruleStore, err := rules.NewStore(db)
	if err != nil {
		return err
	}
	eng := engine.New(txnStore, ruleStore, db, logger)

	var result interface{}
	switch {
	case opts.isServer:
		gin.SetMode(gin.ReleaseMode)
		err := server.Run(fmt.Sprintf("0.0.0.0:%d", opts.port), eng, ruleStore, txnStore, logger)
		if err != nil {
			logger.Error("Server run failed", zap.Error(err))
		}
		return err
	case opts.simulate != "":
		result, err = eng.Simulate(ctx, opts.simulate)
	case opts.execute != "":
		result, err = eng.Execute(ctx, opts.execute)
	case opts.undo != "":
		result, err = eng.Undo(ctx, opts.undo)
	}
	if err != nil {
		return err
	}
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "    ")
	return encoder.Encode(result)
}

func handleErrors(ctx context.Context, db *plaindb.DB) (usageErr bool, err error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return true, err
	}
	opts, printVersion, usageErr, err := parseFlags(os.Args[1:], cfg)
	if err != nil {
		return usageErr, err
	}
	if printVersion {
		fmt.Println(consts.Version)
		return false, nil
	}

	logger, err := newLogger(opts.development)
	if err != nil {
		return false, err
	}
	defer func() { _ = logger.Sync() }()

	if err := os.MkdirAll(opts.dataDir, 0700); err != nil {
		return false, errors.Wrapf(err, "Error creating data directory '%s'", opts.dataDir)
	}
	var dbOpts []plaindb.DBOpt
	if opts.versionControl {
		dbOpts = append(dbOpts, plaindb.VersionControl())
	}
	*db, err = plaindb.Open(opts.dataDir, dbOpts...)
	if err != nil {
		return false, err
	}
	return false, start(ctx, os.Stdout, opts, *db, logger)
}

func shutdown(db plaindb.DB, exitCode int) {
	if db != nil {
		if err := db.Close(); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}
	os.Exit(exitCode)
}

func main() {
	var db plaindb.DB
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		s := <-c
		fmt.Println(`{"level":"info","msg":"Handling signal: ` + s.String() + `"}`)
		cancel()
		shutdown(db, 0)
	}()
	usageErr, err := handleErrors(ctx, &db)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		if usageErr {
			shutdown(db, 2)
		}
		shutdown(db, 1)
	}
}
