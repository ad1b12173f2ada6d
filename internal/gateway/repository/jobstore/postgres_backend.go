package jobstore

import (
	"strings"
)

const jobColumns = `id, prompt, image_mime, phase, error, video_key, video_mime, created_at, updated_at`

func (s *Store) ensureSchema() error {
	if s == nil || s.db == nil {
		return nil
	}
	s.schemaOnce.Do(func() {
		_, s.schemaErr = s.db.Exec(`
CREATE TABLE IF NOT EXISTS generation_jobs (
  id TEXT PRIMARY KEY,
  prompt TEXT NOT NULL,
  image_mime TEXT NOT NULL DEFAULT '',
  phase TEXT NOT NULL DEFAULT 'pending',
  error TEXT NOT NULL DEFAULT '',
  video_key TEXT NOT NULL DEFAULT '',
  video_mime TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
  updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_generation_jobs_created_at ON generation_jobs (created_at DESC);
`)
	})
	return s.schemaErr
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJobDB(row rowScanner) (Job, bool) {
	var job Job
	err := row.Scan(
		&job.ID,
		&job.Prompt,
		&job.ImageMIME,
		&job.Phase,
		&job.Error,
		&job.VideoKey,
		&job.VideoMIME,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		return Job{}, false
	}
	return normalizeJob(job), true
}

func (s *Store) getDB(jobID string) (Job, bool) {
	if err := s.ensureSchema(); err != nil {
		return Job{}, false
	}
	id := strings.TrimSpace(jobID)
	if id == "" {
		return Job{}, false
	}
	if s.readCache != nil {
		if cached, ok := s.readCache.Get(id); ok {
			return cached, true
		}
	}
	row := s.db.QueryRow(`SELECT `+jobColumns+` FROM generation_jobs WHERE id = $1`, id)
	job, ok := scanJobDB(row)
	if ok && s.readCache != nil && job.Phase.Terminal() {
		// only terminal jobs are safe to cache; in-flight ones change
		s.readCache.Add(id, job)
	}
	return job, ok
}

func (s *Store) putDB(job Job) {
	if err := s.ensureSchema(); err != nil {
		return
	}
	n := normalizeJob(job)
	if n.ID == "" {
		return
	}
	_, _ = s.db.Exec(`
INSERT INTO generation_jobs (`+jobColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (id)
DO UPDATE SET prompt=EXCLUDED.prompt,
  image_mime=EXCLUDED.image_mime,
  phase=EXCLUDED.phase,
  error=EXCLUDED.error,
  video_key=EXCLUDED.video_key,
  video_mime=EXCLUDED.video_mime,
  updated_at=EXCLUDED.updated_at`,
		n.ID, n.Prompt, n.ImageMIME, string(n.Phase), n.Error, n.VideoKey, n.VideoMIME, n.CreatedAt, n.UpdatedAt)
	if s.readCache != nil {
		s.readCache.Remove(n.ID)
	}
}

func (s *Store) updateDB(jobID string, update func(*Job)) (Job, bool) {
	if err := s.ensureSchema(); err != nil {
		return Job{}, false
	}
	tx, err := s.db.Begin()
	if err != nil {
		return Job{}, false
	}
	defer func() { _ = tx.Rollback() }()

	id := strings.TrimSpace(jobID)
	row := tx.QueryRow(`SELECT `+jobColumns+` FROM generation_jobs WHERE id = $1 FOR UPDATE`, id)
	cur, ok := scanJobDB(row)
	if !ok {
		return Job{}, false
	}
	update(&cur)
	cur.ID = id
	cur = normalizeJob(cur)
	_, err = tx.Exec(`
UPDATE generation_jobs
SET prompt=$2, image_mime=$3, phase=$4, error=$5, video_key=$6, video_mime=$7, updated_at=$8
WHERE id=$1`,
		cur.ID, cur.Prompt, cur.ImageMIME, string(cur.Phase), cur.Error, cur.VideoKey, cur.VideoMIME, cur.UpdatedAt)
	if err != nil {
		return Job{}, false
	}
	if err := tx.Commit(); err != nil {
		return Job{}, false
	}
	if s.readCache != nil {
		s.readCache.Remove(id)
	}
	return cur, true
}

func (s *Store) listDB() []Job {
	if err := s.ensureSchema(); err != nil {
		return nil
	}
	rows, err := s.db.Query(`SELECT ` + jobColumns + ` FROM generation_jobs ORDER BY created_at DESC`)
	if err != nil {
		return nil
	}
	defer rows.Close()
	out := make([]Job, 0, 32)
	for rows.Next() {
		if job, ok := scanJobDB(rows); ok {
			out = append(out, job)
		}
	}
	return out
}
