package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"weconnect-crm/internal/domain"
	"weconnect-crm/internal/dto"
	"weconnect-crm/internal/metrics"
	"weconnect-crm/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// TrashService is the single entry point for soft delete, restore, purge
// and the retention sweep across every trashable kind.
type TrashService interface {
	SoftDelete(ctx context.Context, actor Actor, kind domain.EntityKind, id uuid.UUID) error
	Restore(ctx context.Context, actor Actor, kind domain.EntityKind, id uuid.UUID) error
	Purge(ctx context.Context, actor Actor, kind domain.EntityKind, id uuid.UUID) error
	List(ctx context.Context, q dto.TrashListQuery) (*dto.TrashListResponse, error)
	Stats(ctx context.Context) (*dto.TrashStatsResponse, error)
	// Sweep purges records deleted more than the retention period before
	// now. A record restored while the sweep runs is skipped, never purged.
	Sweep(ctx context.Context, now time.Time) (*dto.SweepResponse, error)
}

type trashService struct {
	kinds   map[domain.EntityKind]repository.Trashable
	order   []domain.EntityKind
	metrics *metrics.Metrics
	batch   int
	now     func() time.Time
}

func NewTrashService(trashables []repository.Trashable, m *metrics.Metrics, batch int) TrashService {
	if batch <= 0 {
		batch = 200
	}
	s := &trashService{
		kinds:   make(map[domain.EntityKind]repository.Trashable, len(trashables)),
		metrics: m,
		batch:   batch,
		now:     time.Now,
	}
	for _, t := range trashables {
		s.kinds[t.Kind()] = t
		s.order = append(s.order, t.Kind())
	}
	return s
}

func (s *trashService) get(kind domain.EntityKind) (repository.Trashable, error) {
	t, ok := s.kinds[kind]
	if !ok {
		return nil, domain.NewValidationError().Add("kind", fmt.Sprintf("unknown entity kind %q", kind))
	}
	return t, nil
}

func (s *trashService) SoftDelete(ctx context.Context, actor Actor, kind domain.EntityKind, id uuid.UUID) error {
	t, err := s.get(kind)
	if err != nil {
		return err
	}
	if kind == domain.EntityUser && id == actor.UserID {
		return domain.NewValidationError().Add("id", "you cannot delete your own user")
	}
	if err := t.SoftDelete(ctx, id, s.now().UTC()); err != nil {
		return err
	}
	log.Info().Str("kind", string(kind)).Str("id", id.String()).Str("actor", actor.UserID.String()).Msg("moved to trash")
	return nil
}

func (s *trashService) Restore(ctx context.Context, actor Actor, kind domain.EntityKind, id uuid.UUID) error {
	t, err := s.get(kind)
	if err != nil {
		return err
	}
	if err := t.Restore(ctx, id); err != nil {
		return err
	}
	log.Info().Str("kind", string(kind)).Str("id", id.String()).Str("actor", actor.UserID.String()).Msg("restored from trash")
	return nil
}

func (s *trashService) Purge(ctx context.Context, actor Actor, kind domain.EntityKind, id uuid.UUID) error {
	t, err := s.get(kind)
	if err != nil {
		return err
	}
	if err := t.Purge(ctx, id); err != nil {
		return err
	}
	s.metrics.TrashPurged(string(kind), "manual", 1)
	log.Warn().Str("kind", string(kind)).Str("id", id.String()).Str("actor", actor.UserID.String()).Msg("purged from trash")
	return nil
}

func toTrashItem(r repository.TrashedRecord) dto.TrashItemResponse {
	return dto.TrashItemResponse{
		Kind:       string(r.Kind),
		ID:         r.ID.String(),
		Name:       r.Name,
		Identifier: r.Identifier,
		DeletedAt:  r.DeletedAt,
		PurgeAt:    r.DeletedAt.Add(domain.TrashRetention),
	}
}

func (s *trashService) List(ctx context.Context, q dto.TrashListQuery) (*dto.TrashListResponse, error) {
	offset, limit := repository.Page(q.Page, q.Limit)
	page := offset/limit + 1
	resp := &dto.TrashListResponse{Data: []dto.TrashItemResponse{}, Page: page, Limit: limit}

	if q.Kind != "" {
		kind, ok := domain.ParseEntityKind(q.Kind)
		if !ok {
			return nil, domain.NewValidationError().Add("kind", fmt.Sprintf("unknown entity kind %q", q.Kind))
		}
		t, err := s.get(kind)
		if err != nil {
			return nil, err
		}
		rows, total, err := t.ListTrashed(ctx, repository.TrashQuery{Search: q.Search, Offset: offset, Limit: limit})
		if err != nil {
			return nil, err
		}
		resp.Total = total
		for _, r := range rows {
			resp.Data = append(resp.Data, toTrashItem(r))
		}
		return resp, nil
	}

	// Across kinds: take the first offset+limit of each, merge by
	// deleted_at and cut the requested page.
	var merged []repository.TrashedRecord
	for _, kind := range s.order {
		rows, total, err := s.kinds[kind].ListTrashed(ctx, repository.TrashQuery{Search: q.Search, Limit: offset + limit})
		if err != nil {
			return nil, fmt.Errorf("list %s trash: %w", kind, err)
		}
		resp.Total += total
		merged = append(merged, rows...)
	}
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].DeletedAt.After(merged[j].DeletedAt) })
	if offset < len(merged) {
		end := offset + limit
		if end > len(merged) {
			end = len(merged)
		}
		for _, r := range merged[offset:end] {
			resp.Data = append(resp.Data, toTrashItem(r))
		}
	}
	return resp, nil
}

func (s *trashService) Stats(ctx context.Context) (*dto.TrashStatsResponse, error) {
	resp := &dto.TrashStatsResponse{
		Counts:        make(map[string]int64, len(s.order)),
		RetentionDays: int(domain.TrashRetention / (24 * time.Hour)),
	}
	for _, kind := range s.order {
		n, err := s.kinds[kind].CountTrashed(ctx)
		if err != nil {
			return nil, fmt.Errorf("count %s trash: %w", kind, err)
		}
		resp.Counts[string(kind)] = n
		resp.Total += n
	}
	return resp, nil
}

func (s *trashService) Sweep(ctx context.Context, now time.Time) (*dto.SweepResponse, error) {
	cutoff := now.UTC().Add(-domain.TrashRetention)
	resp := &dto.SweepResponse{Cutoff: cutoff, Purged: make(map[string]int, len(s.order))}

	for _, kind := range s.order {
		t := s.kinds[kind]
		purged := 0
		for {
			if err := ctx.Err(); err != nil {
				return resp, err
			}
			ids, err := t.ExpiredIDs(ctx, cutoff, s.batch)
			if err != nil {
				resp.Errors = append(resp.Errors, fmt.Sprintf("%s: %v", kind, err))
				break
			}
			progressed := false
			for _, id := range ids {
				removed, err := t.PurgeExpired(ctx, id, cutoff)
				switch {
				case err != nil:
					resp.Errors = append(resp.Errors, fmt.Sprintf("%s %s: %v", kind, id, err))
				case removed:
					purged++
					progressed = true
				default:
					resp.Skipped++
					progressed = true
				}
			}
			// a short batch means nothing older is left; a batch that
			// only failed would come back identical
			if len(ids) < s.batch || !progressed {
				break
			}
		}
		resp.Purged[string(kind)] = purged
		resp.Total += purged
		s.metrics.TrashPurged(string(kind), "retention", purged)
	}

	log.Info().
		Time("cutoff", cutoff).
		Int("purged", resp.Total).
		Int("skipped", resp.Skipped).
		Int("errors", len(resp.Errors)).
		Msg("trash sweep finished")
	return resp, nil
}
