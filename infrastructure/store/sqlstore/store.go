// Package sqlstore persists the advisory state in SQLite through gorm using
// the CGO-free glebarez driver.
//
// Every mutating call runs inside one gorm transaction and transactions are
// serialized by a process-wide mutex, so the database sees exactly the
// sequence of commits the engine performed.
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/ahrav/go-agrisense/internal/domain"
	"github.com/ahrav/go-agrisense/internal/ports"
)

var _ ports.Store = (*Store)(nil)

const (
	settingAdmin = "admin"

	counterTemplate       = "template"
	counterRecommendation = "recommendation"
)

// Store is a ports.Store backed by a SQLite database.
type Store struct {
	mu     sync.RWMutex
	db     *gorm.DB
	closed bool
}

// Open connects to the SQLite database at dsn, migrates the schema and
// initialises the id counters. Use ":memory:" for a throwaway database.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, ports.NewStoreError("database", "Open", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, ports.NewStoreError("database", "Open", err)
	}
	// A single connection keeps ":memory:" databases shared and avoids
	// SQLITE_BUSY between concurrent readers and the writer.
	sqlDB.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		_ = sqlDB.Close()
		return nil, ports.NewStoreError("database", "Migrate", err)
	}

	return &Store{db: db}, nil
}

func migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&settingRow{},
		&counterRow{},
		&participantRow{},
		&expertRow{},
		&templateRow{},
		&recommendationRow{},
		&feedbackRow{},
		&vocabularyRow{},
	); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}

	counters := []counterRow{
		{Name: counterTemplate, Next: 1},
		{Name: counterRecommendation, Next: 1},
	}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&counters).Error; err != nil {
		return fmt.Errorf("init counters: %w", err)
	}
	return nil
}

// RunInTransaction executes fn inside a database transaction. The
// transaction commits only when fn returns nil; fn's error is returned
// unchanged.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx ports.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ports.NewStoreError("store", "RunInTransaction", ports.ErrStoreClosed)
	}

	return s.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
		return fn(&sqlTx{sqlView{db: gtx}})
	})
}

// View executes fn inside a read transaction so every lookup sees the same
// committed state.
func (s *Store) View(ctx context.Context, fn func(v ports.View) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ports.NewStoreError("store", "View", ports.ErrStoreClosed)
	}

	return s.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
		return fn(&sqlView{db: gtx})
	})
}

// Close closes the underlying database. It is safe to call more than once.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	sqlDB, err := s.db.DB()
	if err != nil {
		return ports.NewStoreError("database", "Close", err)
	}
	if err := sqlDB.Close(); err != nil {
		return ports.NewStoreError("database", "Close", err)
	}
	return nil
}

type sqlView struct{ db *gorm.DB }

// find loads the row matching the query into dst and reports whether it
// exists.
func (v *sqlView) find(entity, op string, dst any, query string, args ...any) (bool, error) {
	res := v.db.Where(query, args...).Limit(1).Find(dst)
	if res.Error != nil {
		return false, ports.NewStoreError(entity, op, res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (v *sqlView) Admin() (string, error) {
	var row settingRow
	if _, err := v.find("setting", "Admin", &row, "name = ?", settingAdmin); err != nil {
		return "", err
	}
	return row.Value, nil
}

func (v *sqlView) Participant(owner string) (domain.Participant, bool, error) {
	var row participantRow
	ok, err := v.find("participant", "Participant", &row, "owner = ?", owner)
	if err != nil || !ok {
		return domain.Participant{}, false, err
	}
	return row.toDomain(), true, nil
}

func (v *sqlView) Expert(id string) (domain.Expert, bool, error) {
	var row expertRow
	ok, err := v.find("expert", "Expert", &row, "id = ?", id)
	if err != nil || !ok {
		return domain.Expert{}, false, err
	}
	return row.toDomain(), true, nil
}

func (v *sqlView) Template(id uint64) (domain.Template, bool, error) {
	var row templateRow
	ok, err := v.find("template", "Template", &row, "id = ?", id)
	if err != nil || !ok {
		return domain.Template{}, false, err
	}
	return row.toDomain(), true, nil
}

func (v *sqlView) Templates() ([]domain.Template, error) {
	var rows []templateRow
	if err := v.db.Order("id asc").Find(&rows).Error; err != nil {
		return nil, ports.NewStoreError("template", "Templates", err)
	}
	out := make([]domain.Template, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (v *sqlView) Recommendation(id uint64) (domain.Recommendation, bool, error) {
	var row recommendationRow
	ok, err := v.find("recommendation", "Recommendation", &row, "id = ?", id)
	if err != nil || !ok {
		return domain.Recommendation{}, false, err
	}
	return row.toDomain(), true, nil
}

func (v *sqlView) Feedback(recommendationID uint64) (domain.Feedback, bool, error) {
	var row feedbackRow
	ok, err := v.find("feedback", "Feedback", &row, "recommendation_id = ?", recommendationID)
	if err != nil || !ok {
		return domain.Feedback{}, false, err
	}
	return row.toDomain(), true, nil
}

func (v *sqlView) Vocabulary(kind domain.VocabularyKind) ([]string, error) {
	if !kind.Valid() {
		return nil, ports.NewStoreError("vocabulary", "Vocabulary", ports.ErrUnknownVocabulary)
	}
	terms := []string{}
	err := v.db.Model(&vocabularyRow{}).
		Where("kind = ?", string(kind)).
		Order("term asc").
		Pluck("term", &terms).Error
	if err != nil {
		return nil, ports.NewStoreError("vocabulary", "Vocabulary", err)
	}
	return terms, nil
}

func (v *sqlView) HasTerm(kind domain.VocabularyKind, term string) (bool, error) {
	if !kind.Valid() {
		return false, ports.NewStoreError("vocabulary", "HasTerm", ports.ErrUnknownVocabulary)
	}
	var count int64
	err := v.db.Model(&vocabularyRow{}).
		Where("kind = ? AND term = ?", string(kind), term).
		Count(&count).Error
	if err != nil {
		return false, ports.NewStoreError("vocabulary", "HasTerm", err)
	}
	return count > 0, nil
}

type sqlTx struct{ sqlView }

// upsert inserts row or replaces every column of the existing row with the
// same primary key.
func (tx *sqlTx) upsert(entity, op string, row any) error {
	if err := tx.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(row).Error; err != nil {
		return ports.NewStoreError(entity, op, err)
	}
	return nil
}

func (tx *sqlTx) SetAdmin(id string) error {
	return tx.upsert("setting", "SetAdmin", &settingRow{Name: settingAdmin, Value: id})
}

func (tx *sqlTx) PutParticipant(p domain.Participant) error {
	row := participantToRow(p)
	return tx.upsert("participant", "PutParticipant", &row)
}

func (tx *sqlTx) PutExpert(e domain.Expert) error {
	row := expertToRow(e)
	return tx.upsert("expert", "PutExpert", &row)
}

func (tx *sqlTx) PutTemplate(t domain.Template) error {
	row := templateToRow(t)
	return tx.upsert("template", "PutTemplate", &row)
}

func (tx *sqlTx) PutRecommendation(r domain.Recommendation) error {
	row := recommendationToRow(r)
	return tx.upsert("recommendation", "PutRecommendation", &row)
}

func (tx *sqlTx) PutFeedback(f domain.Feedback) error {
	row := feedbackToRow(f)
	return tx.upsert("feedback", "PutFeedback", &row)
}

func (tx *sqlTx) AddTerm(kind domain.VocabularyKind, term string) error {
	if !kind.Valid() {
		return ports.NewStoreError("vocabulary", "AddTerm", ports.ErrUnknownVocabulary)
	}
	row := vocabularyRow{Kind: string(kind), Term: term}
	if err := tx.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
		return ports.NewStoreError("vocabulary", "AddTerm", err)
	}
	return nil
}

func (tx *sqlTx) NextTemplateID() (uint64, error) {
	return tx.next(counterTemplate)
}

func (tx *sqlTx) NextRecommendationID() (uint64, error) {
	return tx.next(counterRecommendation)
}

// next returns the counter's current value and advances it by one.
func (tx *sqlTx) next(name string) (uint64, error) {
	var row counterRow
	ok, err := tx.find("counter", "Next", &row, "name = ?", name)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ports.NewStoreError("counter", "Next", errors.New("counter "+name+" missing"))
	}

	res := tx.db.Model(&counterRow{}).
		Where("name = ?", name).
		Update("next", gorm.Expr("next + 1"))
	if res.Error != nil {
		return 0, ports.NewStoreError("counter", "Next", res.Error)
	}
	return row.Next, nil
}
