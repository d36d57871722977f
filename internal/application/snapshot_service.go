package application

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/bar-occupancy/internal/domain/entity"
	"github.com/oksasatya/bar-occupancy/pkg/helpers"
)

// BarLister is anything that can list bars: the occupancy service or the HTTP client.
type BarLister interface {
	ListBars(ctx context.Context) ([]entity.Bar, error)
}

// ObjectUploader stores an object and returns where it can be read.
type ObjectUploader interface {
	Upload(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error)
}

// Snapshot is one archived reading of every bar.
type Snapshot struct {
	TakenAt time.Time    `json:"takenAt"`
	Bars    []entity.Bar `json:"bars"`
}

// SnapshotService archives the current occupancy of all bars as JSON.
type SnapshotService struct {
	Source   BarLister
	Uploader ObjectUploader
	Prefix   string
	Now      func() time.Time
}

// Export writes <prefix>/YYYY/MM/DD/HHMMSS.json and returns its URL.
func (s *SnapshotService) Export(ctx context.Context) (string, error) {
	if s.Source == nil || s.Uploader == nil {
		return "", errors.New("snapshot source or uploader not configured")
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	bars, err := s.Source.ListBars(ctx)
	if err != nil {
		return "", fmt.Errorf("list bars: %w", err)
	}
	snap := Snapshot{TakenAt: now().UTC(), Bars: bars}
	body, err := json.Marshal(snap)
	if err != nil {
		return "", err
	}
	objectPath := path.Join(s.Prefix, snap.TakenAt.Format("2006/01/02/150405")+".json")
	return s.Uploader.Upload(ctx, objectPath, "application/json", bytes.NewReader(body))
}

// Run exports a snapshot every interval until ctx is cancelled. Failed
// exports are logged and retried on the next tick.
func (s *SnapshotService) Run(ctx context.Context, every time.Duration, logger *logrus.Logger) {
	if every <= 0 {
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			url, err := s.Export(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				helpers.LogError(logger, "snapshot export failed", err, nil)
				continue
			}
			helpers.LogInfo(logger, "snapshot exported", logrus.Fields{"url": url})
		}
	}
}
