package sqlite

import (
	"errors"
	"time"

	"github.com/awsl-project/deskshell/internal/domain"
	"gorm.io/gorm"
)

type ManagedProcessRepository struct {
	db *DB
}

func NewManagedProcessRepository(d *DB) *ManagedProcessRepository {
	return &ManagedProcessRepository{db: d}
}

func (r *ManagedProcessRepository) Create(p *domain.ManagedProcess) error {
	now := time.Now()
	if p.StartedAt.IsZero() {
		p.StartedAt = now
	}
	model := r.toModel(p)
	model.CreatedAt = toTimestamp(now)
	model.UpdatedAt = toTimestamp(now)

	if err := r.db.gorm.Create(model).Error; err != nil {
		return err
	}
	p.ID = model.ID
	p.CreatedAt = now
	p.UpdatedAt = now
	return nil
}

func (r *ManagedProcessRepository) ListOpen() ([]*domain.ManagedProcess, error) {
	var models []ManagedProcess
	if err := r.db.gorm.Where("stopped_at = 0").Order("started_at ASC, id ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	return r.toDomainList(models), nil
}

func (r *ManagedProcessRepository) GetOpenByPID(pid int) (*domain.ManagedProcess, error) {
	var model ManagedProcess
	err := r.db.gorm.Where("pid = ? AND stopped_at = 0", pid).Order("id DESC").First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.toDomain(&model), nil
}

func (r *ManagedProcessRepository) MarkStopped(id uint64, outcome string, at time.Time) error {
	return r.db.gorm.Model(&ManagedProcess{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"stopped_at": toTimestamp(at),
			"outcome":    outcome,
			"updated_at": toTimestamp(time.Now()),
		}).Error
}

func (r *ManagedProcessRepository) DeleteStoppedBefore(before time.Time) (int64, error) {
	result := r.db.gorm.
		Where("stopped_at > 0 AND stopped_at < ?", toTimestamp(before)).
		Delete(&ManagedProcess{})
	return result.RowsAffected, result.Error
}

func (r *ManagedProcessRepository) toModel(p *domain.ManagedProcess) *ManagedProcess {
	return &ManagedProcess{
		BaseModel: BaseModel{
			ID:        p.ID,
			CreatedAt: toTimestamp(p.CreatedAt),
			UpdatedAt: toTimestamp(p.UpdatedAt),
		},
		PID:       p.PID,
		Kind:      string(p.Kind),
		Name:      p.Name,
		Label:     p.Label,
		StartedAt: toTimestamp(p.StartedAt),
		StoppedAt: toTimestampPtr(p.StoppedAt),
		Outcome:   p.Outcome,
	}
}

func (r *ManagedProcessRepository) toDomain(m *ManagedProcess) *domain.ManagedProcess {
	return &domain.ManagedProcess{
		ID:        m.ID,
		CreatedAt: fromTimestamp(m.CreatedAt),
		UpdatedAt: fromTimestamp(m.UpdatedAt),
		PID:       m.PID,
		Kind:      domain.ProcessKind(m.Kind),
		Name:      m.Name,
		Label:     m.Label,
		StartedAt: fromTimestamp(m.StartedAt),
		StoppedAt: fromTimestampPtr(m.StoppedAt),
		Outcome:   m.Outcome,
	}
}

func (r *ManagedProcessRepository) toDomainList(models []ManagedProcess) []*domain.ManagedProcess {
	out := make([]*domain.ManagedProcess, len(models))
	for i := range models {
		out[i] = r.toDomain(&models[i])
	}
	return out
}
