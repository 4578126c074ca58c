package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/alissonfar/newApp-sub001/ledger"
	"github.com/alissonfar/newApp-sub001/plaindb"
	"github.com/alissonfar/newApp-sub001/rules"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// procedurally generate transactions and rules for a demo owner
func main() {
	dataDir := flag.String("data", "", "Required: Path to the database directory to seed")
	owner := flag.String("owner", "demo", "Owner ID of the generated transactions and rules")
	people := flag.String("people", "Ana,Bruno,Carla", "Comma separated people to split payments between")
	months := flag.Int("months", 12, "Months of transactions to generate, ending today")
	useVCS := flag.Bool("vcs", false, "Commit the seeded data to a git repository in the data directory")
	flag.Parse()

	if *dataDir == "" {
		fmt.Fprintln(os.Stderr, "Missing required flag: -data")
		flag.Usage()
		os.Exit(2)
	}

	end := time.Now().UTC()
	start := end.AddDate(0, -*months, 0)
	generator := &Generator{OwnerID: *owner, People: splitPeople(*people)}
	if err := seed(context.Background(), os.Stdout, *dataDir, *useVCS, generator, start, end); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func splitPeople(list string) []string {
	var people []string
	for _, person := range strings.Split(list, ",") {
		if person = strings.TrimSpace(person); person != "" {
			people = append(people, person)
		}
	}
	return people
}

func seed(ctx context.Context, out io.Writer, dataDir string, useVCS bool, generator *Generator, start, end time.Time) error {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return errors.Wrapf(err, "Error creating data directory '%s'", dataDir)
	}
	var opts []plaindb.DBOpt
	if useVCS {
		opts = append(opts, plaindb.VersionControl())
	}
	db, err := plaindb.Open(dataDir, opts...)
	if err != nil {
		return err
	}
	defer db.Close()
	return seedDB(ctx, out, db, generator, start, end)
}

func seedDB(ctx context.Context, out io.Writer, db plaindb.DB, generator *Generator, start, end time.Time) error {
	txnStore, err := ledger.NewStore(db)
	if err != nil {
		return err
	}
	ruleStore, err := rules.NewStore(db)
	if err != nil {
		return err
	}
	demoRuleList, err := demoRules(generator.OwnerID)
	if err != nil {
		return err
	}

	txns := generator.Transactions(start, end)
	var total decimal.Decimal
	err = db.Update(ctx, func(ctx context.Context) error {
		for _, txn := range txns {
			if err := txnStore.Replace(ctx, txn.ID, txn); err != nil {
				return err
			}
			if txn.Type == ledger.Expense {
				total = total.Add(txn.Amount)
			}
		}
		for _, rule := range demoRuleList {
			if _, err := ruleStore.Add(ctx, rule); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "Failed to seed demo data")
	}

	spent, _ := total.Float64()
	fmt.Fprintf(out, "Seeded %d transactions spending %v and %d rules for owner %q\n",
		len(txns), currency.Symbol(currency.USD.Amount(spent)), len(demoRuleList), generator.OwnerID)
	return nil
}
