package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/bar-occupancy/internal/domain/entity"
	"github.com/oksasatya/bar-occupancy/internal/domain/repository"
)

// EventPublisher delivers count-update events; helpers.RabbitPublisher implements it.
type EventPublisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// CountUpdated is published after every successful count change.
type CountUpdated struct {
	BarID         int64     `json:"bar_id"`
	Name          string    `json:"name"`
	PreviousCount int       `json:"previous_count"`
	CurrentCount  int       `json:"current_count"`
	Capacity      int       `json:"capacity"`
	UserID        int64     `json:"user_id"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type OccupancyService struct {
	Bars   repository.BarRepository
	Events EventPublisher
	Logger *logrus.Logger

	// EnforceOwnership limits updates to the bar named by the user's BarID.
	EnforceOwnership bool

	now func() time.Time
}

func NewOccupancyService(bars repository.BarRepository, events EventPublisher, logger *logrus.Logger, enforceOwnership bool) *OccupancyService {
	return &OccupancyService{
		Bars:             bars,
		Events:           events,
		Logger:           logger,
		EnforceOwnership: enforceOwnership,
		now:              time.Now,
	}
}

func (s *OccupancyService) ListBars(ctx context.Context) ([]entity.Bar, error) {
	return s.Bars.GetAllBars(ctx)
}

func (s *OccupancyService) GetBar(ctx context.Context, id int64) (*entity.Bar, error) {
	b, err := s.Bars.GetBar(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrBarNotFound
	}
	return b, err
}

// UpdateCount sets a bar's headcount on behalf of actor. An unknown bar is
// reported before the ownership check, so callers cannot probe ownership of
// ids that do not exist.
func (s *OccupancyService) UpdateCount(ctx context.Context, actor *entity.User, barID int64, count int) (*entity.Bar, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	if count < 0 {
		return nil, ErrInvalidCount
	}
	prev, err := s.GetBar(ctx, barID)
	if err != nil {
		return nil, err
	}
	if s.EnforceOwnership && !actor.Manages(barID) {
		if s.Logger != nil {
			s.Logger.WithFields(logrus.Fields{"user_id": actor.ID, "bar_id": barID}).Warn("count update rejected: not the bar manager")
		}
		return nil, ErrForbidden
	}

	updated, err := s.Bars.UpdateBarCount(ctx, barID, count)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrBarNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update bar count: %w", err)
	}
	countUpdateTotal.Add(1)

	if s.Logger != nil {
		s.Logger.WithFields(logrus.Fields{
			"user_id":  actor.ID,
			"bar_id":   barID,
			"previous": prev.CurrentCount,
			"count":    count,
		}).Info("bar count updated")
	}
	s.publish(ctx, CountUpdated{
		BarID:         updated.ID,
		Name:          updated.Name,
		PreviousCount: prev.CurrentCount,
		CurrentCount:  updated.CurrentCount,
		Capacity:      updated.Capacity,
		UserID:        actor.ID,
		UpdatedAt:     s.now().UTC(),
	})
	return updated, nil
}

// publish never fails the update; a lost event only delays search freshness.
func (s *OccupancyService) publish(ctx context.Context, ev CountUpdated) {
	if s.Events == nil {
		return
	}
	c, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := s.Events.PublishJSON(c, ev); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("bar_id", ev.BarID).Warn("publish count update failed")
	}
}
