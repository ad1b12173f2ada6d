package jobstore

import (
	"database/sql"
	"os"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Store keeps generation jobs either in a JSON file (default) or in
// Postgres when a DSN is configured. The file backend is meant for
// single-instance local runs; Postgres for anything shared.
type Store struct {
	path string
	db   *sql.DB

	loadOnce sync.Once
	mu       sync.RWMutex
	byID     map[string]Job

	schemaOnce sync.Once
	schemaErr  error

	readCache *lru.Cache[string, Job]
}

func New(path string) *Store {
	return &Store{
		path: path,
		byID: make(map[string]Job),
	}
}

func NewPostgres(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	cache, err := lru.New[string, Job](1024)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{
		db:        db,
		readCache: cache,
	}, nil
}

func NewFromEnv(path string) *Store {
	dsn := strings.TrimSpace(os.Getenv("JOB_STORE_PG_DSN"))
	if dsn == "" {
		return New(path)
	}
	s, err := NewPostgres(dsn)
	if err != nil {
		return New(path)
	}
	return s
}

func (s *Store) Get(jobID string) (Job, bool) {
	if s == nil {
		return Job{}, false
	}
	if s.db != nil {
		return s.getDB(jobID)
	}
	return s.getFile(jobID)
}

func (s *Store) Put(job Job) {
	if s == nil {
		return
	}
	if s.db != nil {
		s.putDB(job)
		return
	}
	s.putFile(job)
}

func (s *Store) Update(jobID string, update func(*Job)) (Job, bool) {
	if s == nil {
		return Job{}, false
	}
	if s.db != nil {
		return s.updateDB(jobID, update)
	}
	return s.updateFile(jobID, update)
}

func (s *Store) List() []Job {
	if s == nil {
		return nil
	}
	if s.db != nil {
		return s.listDB()
	}
	return s.listFile()
}
