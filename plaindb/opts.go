package plaindb

import (
	"github.com/alissonfar/newApp-sub001/vcs"
)

// DBOpt configures the DB built by Open
type DBOpt interface {
	do(*database) error
}

type dbOpt func(*database) error

func (opt dbOpt) do(db *database) error {
	return opt(db)
}

// VersionControl commits every save to a Git repository in the database directory.
// Buckets saved by the same Update land in a single commit.
func VersionControl() DBOpt {
	return dbOpt(func(db *database) error {
		repo, err := vcs.Open(db.path)
		if err != nil {
			return err
		}
		db.save = committingSaver(repo)
		return nil
	})
}

func committingSaver(repo vcs.Repository) func(buckets ...*bucket) error {
	return func(buckets ...*bucket) error {
		if len(buckets) == 0 {
			return nil
		}
		paths := make([]string, 0, len(buckets))
		for _, b := range buckets {
			paths = append(paths, b.path)
		}
		return repo.CommitFiles(func() error {
			return saveBuckets(buckets...)
		}, "Update "+bucketNames(buckets), paths...)
	}
}
