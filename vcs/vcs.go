// Package vcs records bucket saves as Git commits
package vcs

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/alissonfar/newApp-sub001/pipe"
	"github.com/pkg/errors"
	"gopkg.in/src-d/go-git.v4"
	"gopkg.in/src-d/go-git.v4/plumbing"
	"gopkg.in/src-d/go-git.v4/plumbing/object"
)

const authorName = "Rules Engine"

// Repository commits bucket files, one writer at a time
type Repository interface {
	// CommitFiles runs writeFiles with exclusive access to the repository, then commits 'paths' with 'message'.
	// No commit is made if none of 'paths' changed.
	CommitFiles(writeFiles func() error, message string, paths ...string) error
}

// Open opens the Git repo at 'path', creating it if necessary
func Open(path string) (Repository, error) {
	path = filepath.Clean(path)
	if err := os.MkdirAll(path, 0750); err != nil {
		return nil, err
	}
	repo, err := git.PlainOpen(path)
	if err == git.ErrRepositoryNotExists {
		repo, err = initRepo(path)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to open repository at %s", path)
	}
	return &lockedRepo{repo: repo}, nil
}

type lockedRepo struct {
	mu   sync.Mutex
	repo *git.Repository
}

// initRepo creates a repo at path. Buckets written before version control was enabled go in the first commit.
func initRepo(path string) (*git.Repository, error) {
	var repo *git.Repository
	var tree *git.Worktree
	var existing []string
	err := pipe.Steps{}.
		Then("init repository", func() (err error) {
			repo, err = git.PlainInit(path, false)
			return
		}).
		Then("open worktree", func() (err error) {
			tree, err = repo.Worktree()
			return
		}).
		Then("find existing buckets", func() error {
			status, err := tree.Status()
			for file, fileStatus := range status {
				if fileStatus.Worktree == git.Untracked && strings.HasSuffix(file, ".json") {
					existing = append(existing, file)
				}
			}
			return err
		}).
		Then("commit existing buckets", func() error {
			if len(existing) == 0 {
				return nil
			}
			for _, file := range existing {
				if _, err := tree.Add(file); err != nil {
					return err
				}
			}
			_, err := tree.Commit("Initial commit", &git.CommitOptions{Author: signature()})
			return err
		}).
		Run()
	return repo, err
}

func signature() *object.Signature {
	return &object.Signature{
		Name: authorName,
		When: time.Now(),
	}
}

func (r *lockedRepo) CommitFiles(writeFiles func() error, message string, paths ...string) error {
	if len(paths) == 0 {
		return errors.New("No files to commit")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var tree *git.Worktree
	var staged []string
	return pipe.Steps{{Do: writeFiles}}.
		Then("open worktree", func() (err error) {
			tree, err = r.repo.Worktree()
			return
		}).
		Then("unstage files", func() error {
			_, err := r.repo.Head()
			if err == plumbing.ErrReferenceNotFound {
				// nothing committed yet, so nothing to reset to
				return nil
			}
			if err != nil {
				return err
			}
			return tree.Reset(&git.ResetOptions{})
		}).
		Then("stage files", func() error {
			root, err := filepath.Abs(tree.Filesystem.Root())
			if err != nil {
				return err
			}
			for _, path := range paths {
				rel, err := relativePath(root, path)
				if err != nil {
					return err
				}
				if _, err := tree.Add(rel); err != nil {
					return errors.Wrap(err, rel)
				}
				staged = append(staged, rel)
			}
			return nil
		}).
		Then("commit", func() error {
			status, err := tree.Status()
			if err != nil {
				return err
			}
			if !anyStaged(status, staged) {
				return nil
			}
			_, err = tree.Commit(message, &git.CommitOptions{Author: signature()})
			return err
		}).
		Run()
}

func relativePath(root, path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.Rel(root, abs)
}

func anyStaged(status git.Status, paths []string) bool {
	for _, path := range paths {
		if fileStatus, ok := status[path]; ok && fileStatus.Staging != git.Unmodified {
			return true
		}
	}
	return false
}
