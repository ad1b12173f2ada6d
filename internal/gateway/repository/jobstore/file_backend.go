package jobstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

func (s *Store) ensureLoadedFile() {
	s.loadOnce.Do(func() {
		b, err := os.ReadFile(s.path)
		if err != nil {
			return
		}
		var rows []Job
		if err := json.Unmarshal(b, &rows); err != nil {
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, row := range rows {
			id := strings.TrimSpace(row.ID)
			if id == "" {
				continue
			}
			s.byID[id] = normalizeJob(row)
		}
	})
}

func (s *Store) saveFile() {
	s.mu.RLock()
	rows := make([]Job, 0, len(s.byID))
	for _, job := range s.byID {
		rows = append(rows, normalizeJob(job))
	}
	s.mu.RUnlock()

	b, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return
	}
	_ = os.MkdirAll(filepath.Dir(s.path), 0o755)
	_ = os.WriteFile(s.path, b, 0o644)
}

func (s *Store) getFile(jobID string) (Job, bool) {
	s.ensureLoadedFile()
	id := strings.TrimSpace(jobID)
	if id == "" {
		return Job{}, false
	}
	s.mu.RLock()
	job, ok := s.byID[id]
	s.mu.RUnlock()
	if !ok {
		return Job{}, false
	}
	return normalizeJob(job), true
}

func (s *Store) putFile(job Job) {
	s.ensureLoadedFile()
	normalized := normalizeJob(job)
	if normalized.ID == "" {
		return
	}
	s.mu.Lock()
	s.byID[normalized.ID] = normalized
	s.mu.Unlock()
	s.saveFile()
}

func (s *Store) updateFile(jobID string, update func(*Job)) (Job, bool) {
	s.ensureLoadedFile()
	id := strings.TrimSpace(jobID)
	if id == "" {
		return Job{}, false
	}
	s.mu.Lock()
	job, ok := s.byID[id]
	if !ok {
		s.mu.Unlock()
		return Job{}, false
	}
	update(&job)
	job.ID = id
	job = normalizeJob(job)
	s.byID[id] = job
	s.mu.Unlock()
	s.saveFile()
	return job, true
}

func (s *Store) listFile() []Job {
	s.ensureLoadedFile()
	s.mu.RLock()
	out := make([]Job, 0, len(s.byID))
	for _, job := range s.byID {
		out = append(out, normalizeJob(job))
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
