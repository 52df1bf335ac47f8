package sqlite

// BaseModel stores timestamps as Unix milliseconds.
type BaseModel struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	CreatedAt int64  `gorm:"not null;autoCreateTime:false"`
	UpdatedAt int64  `gorm:"not null;autoUpdateTime:false"`
}

// ManagedProcess is the row for domain.ManagedProcess.
type ManagedProcess struct {
	BaseModel
	PID       int    `gorm:"column:pid;not null;index"`
	Kind      string `gorm:"size:64;not null"`
	Name      string `gorm:"size:255"`
	Label     string `gorm:"size:1024"`
	StartedAt int64  `gorm:"not null"`
	StoppedAt int64  `gorm:"not null;default:0;index"`
	Outcome   string `gorm:"size:32"`
}

func (ManagedProcess) TableName() string { return "managed_processes" }

// AllModels lists every model for auto-migration.
func AllModels() []any {
	return []any{
		&ManagedProcess{},
	}
}
