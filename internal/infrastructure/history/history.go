// Package history keeps every rendered proxy configuration in a local git
// repository so operators can see what changed between runs.
package history

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/alexisbeaulieu97/zbxproxy/internal/ports"
)

// DefaultDir is where the repository lives unless configured otherwise.
const DefaultDir = "/var/lib/zbxproxy/history"

// Entry is one recorded revision.
type Entry struct {
	Hash    string
	When    time.Time
	Message string
}

// Store commits files into a git work tree.
type Store struct {
	dir    string
	author object.Signature
	now    func() time.Time

	mu sync.Mutex
}

var _ ports.ConfigHistory = (*Store)(nil)

// New returns a Store rooted at dir. The repository is created on the
// first Record.
func New(dir string) *Store {
	if dir == "" {
		dir = DefaultDir
	}
	return &Store{
		dir:    dir,
		author: object.Signature{Name: "zbxproxy", Email: "zbxproxy@localhost"},
		now:    time.Now,
	}
}

func (s *Store) open() (*git.Repository, error) {
	repo, err := git.PlainOpen(s.dir)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		if err := os.MkdirAll(s.dir, 0o700); err != nil {
			return nil, err
		}
		return git.PlainInit(s.dir, false)
	}
	return repo, err
}

// Record writes content under name and commits it. Identical content
// produces no new commit.
func (s *Store) Record(ctx context.Context, name string, content []byte, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name = filepath.Base(name)

	s.mu.Lock()
	defer s.mu.Unlock()

	repo, err := s.open()
	if err != nil {
		return fmt.Errorf("open history %s: %w", s.dir, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("open history worktree: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, name), content, 0o600); err != nil {
		return fmt.Errorf("write %s to history: %w", name, err)
	}
	if _, err := wt.Add(name); err != nil {
		return fmt.Errorf("stage %s: %w", name, err)
	}

	status, err := wt.Status()
	if err != nil {
		return fmt.Errorf("history status: %w", err)
	}
	if status.IsClean() {
		return nil
	}

	author := s.author
	author.When = s.now()
	if _, err := wt.Commit(message, &git.CommitOptions{Author: &author}); err != nil {
		return fmt.Errorf("commit %s: %w", name, err)
	}
	return nil
}

// Log returns up to limit revisions, newest first. A limit of zero returns
// everything. A missing repository has no entries.
func (s *Store) Log(ctx context.Context, limit int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	repo, err := git.PlainOpen(s.dir)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open history %s: %w", s.dir, err)
	}

	iter, err := repo.Log(&git.LogOptions{Order: git.LogOrderCommitterTime})
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	defer iter.Close()

	var entries []Entry
	for limit <= 0 || len(entries) < limit {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		commit, err := iter.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read history: %w", err)
		}
		entries = append(entries, Entry{
			Hash:    commit.Hash.String()[:12],
			When:    commit.Author.When,
			Message: strings.TrimSpace(commit.Message),
		})
	}
	return entries, nil
}
