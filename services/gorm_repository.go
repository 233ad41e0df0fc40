package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"tournament-engine/models"
)

type GormRepository struct {
	DB *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{DB: db}
}

// OpenPostgres connects with driver errors translated, so unique violations
// surface as gorm.ErrDuplicatedKey.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func (r *GormRepository) Migrate() error {
	return r.DB.AutoMigrate(&models.Tournament{})
}

func (r *GormRepository) Create(ctx context.Context, t *models.Tournament) error {
	err := r.DB.WithContext(ctx).Create(t).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return models.ErrDuplicateTournament
	}
	return err
}

func (r *GormRepository) Get(ctx context.Context, id string) (*models.Tournament, error) {
	var t models.Tournament
	err := r.DB.WithContext(ctx).First(&t, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrTournamentNotFound
	}
	if err != nil {
		return nil, err
	}
	t.Recompute()
	return &t, nil
}

func (r *GormRepository) List(ctx context.Context, f ListFilter) ([]*models.Tournament, int64, error) {
	f = f.normalized()
	q := r.DB.WithContext(ctx).Model(&models.Tournament{})
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}
	if f.GameType != "" {
		q = q.Where("game_type = ?", f.GameType)
	}
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.StartTime != nil {
		q = q.Where("start_time = ?", f.StartTime.UTC())
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var items []*models.Tournament
	err := q.Order("start_time ASC").Order("id ASC").
		Offset(f.offset()).Limit(f.Limit).
		Find(&items).Error
	if err != nil {
		return nil, 0, err
	}
	for _, t := range items {
		t.Recompute()
	}
	return items, total, nil
}

func (r *GormRepository) Update(ctx context.Context, t *models.Tournament, expected int) error {
	res := r.DB.WithContext(ctx).Model(t).
		Where("version = ?", expected).
		Select("*").Omit("created_at").
		Updates(t)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return models.ErrDuplicateTournament
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errStaleVersion
	}
	return nil
}

func (r *GormRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
