package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/codecrew-ai/codecrew/types"
)

// artifactRow is the SQL projection of a types.Artifact. Content and
// metadata are stored as JSON blobs since their shape is skill-defined.
type artifactRow struct {
	ID        string `gorm:"primaryKey;size:32"`
	Type      string `gorm:"index:idx_type_version;size:64"`
	Producer  string `gorm:"size:128"`
	Status    string `gorm:"size:32"`
	Version   int    `gorm:"index:idx_type_version"`
	Content   []byte `gorm:"type:blob"`
	Metadata  []byte `gorm:"type:blob"`
	CreatedAt time.Time
	Seq       int64 `gorm:"autoIncrement;uniqueIndex"`
}

func (artifactRow) TableName() string { return "artifacts" }

// SQLStore is a persistent artifact catalog backed by SQLite, for projects
// that must survive process restarts. It implements the same catalog
// contract as MemoryStore: reads degrade to empty results and storage
// failures are logged, since the contract has no error path.
type SQLStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewSQLStore opens (or creates) the catalog database at path.
// Use ":memory:" for an ephemeral database.
func NewSQLStore(path string, logger *zap.Logger) (*SQLStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, types.NewError(types.ErrStore, "open artifact database").WithCause(err)
	}
	if err := db.AutoMigrate(&artifactRow{}); err != nil {
		return nil, types.NewError(types.ErrStore, "migrate artifact schema").WithCause(err)
	}
	return &SQLStore{
		db:     db,
		logger: logger.With(zap.String("component", "sql_store")),
	}, nil
}

func (s *SQLStore) Put(a types.Artifact) string {
	row, err := toRow(a)
	if err != nil {
		s.logger.Error("encode artifact", zap.String("artifact_id", a.ID), zap.Error(err))
		return a.ID
	}
	if err := s.db.Create(&row).Error; err != nil {
		s.logger.Error("store artifact", zap.String("artifact_id", a.ID), zap.Error(err))
	}
	return a.ID
}

func (s *SQLStore) Get(id string) (types.Artifact, bool) {
	var row artifactRow
	err := s.db.Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return types.Artifact{}, false
	}
	if err != nil {
		s.logger.Error("load artifact", zap.String("artifact_id", id), zap.Error(err))
		return types.Artifact{}, false
	}
	a, err := fromRow(row)
	if err != nil {
		s.logger.Error("decode artifact", zap.String("artifact_id", id), zap.Error(err))
		return types.Artifact{}, false
	}
	return a, true
}

func (s *SQLStore) GetByType(t types.ArtifactType) []types.Artifact {
	var rows []artifactRow
	err := s.db.Where("type = ?", string(t)).Order("version DESC, seq ASC").Find(&rows).Error
	if err != nil {
		s.logger.Error("query artifacts", zap.String("type", string(t)), zap.Error(err))
		return nil
	}
	artifacts := make([]types.Artifact, 0, len(rows))
	for _, row := range rows {
		a, err := fromRow(row)
		if err != nil {
			s.logger.Error("decode artifact", zap.String("artifact_id", row.ID), zap.Error(err))
			continue
		}
		artifacts = append(artifacts, a)
	}
	return artifacts
}

func (s *SQLStore) Latest(t types.ArtifactType) (types.Artifact, bool) {
	var row artifactRow
	err := s.db.Where("type = ?", string(t)).Order("version DESC, seq ASC").Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return types.Artifact{}, false
	}
	if err != nil {
		s.logger.Error("query latest artifact", zap.String("type", string(t)), zap.Error(err))
		return types.Artifact{}, false
	}
	a, err := fromRow(row)
	if err != nil {
		s.logger.Error("decode artifact", zap.String("artifact_id", row.ID), zap.Error(err))
		return types.Artifact{}, false
	}
	return a, true
}

func (s *SQLStore) All() []types.Artifact {
	var rows []artifactRow
	if err := s.db.Order("seq ASC").Find(&rows).Error; err != nil {
		s.logger.Error("list artifacts", zap.Error(err))
		return nil
	}
	artifacts := make([]types.Artifact, 0, len(rows))
	for _, row := range rows {
		a, err := fromRow(row)
		if err != nil {
			continue
		}
		artifacts = append(artifacts, a)
	}
	return artifacts
}

func (s *SQLStore) Clear() {
	if err := s.db.Where("1 = 1").Delete(&artifactRow{}).Error; err != nil {
		s.logger.Error("clear artifacts", zap.Error(err))
	}
}

func toRow(a types.Artifact) (artifactRow, error) {
	content, err := json.Marshal(a.Content)
	if err != nil {
		return artifactRow{}, fmt.Errorf("marshal content: %w", err)
	}
	metadata, err := json.Marshal(a.Metadata)
	if err != nil {
		return artifactRow{}, fmt.Errorf("marshal metadata: %w", err)
	}
	return artifactRow{
		ID:        a.ID,
		Type:      string(a.Type),
		Producer:  a.Producer,
		Status:    string(a.Status),
		Version:   a.Version,
		Content:   content,
		Metadata:  metadata,
		CreatedAt: a.CreatedAt,
	}, nil
}

func fromRow(row artifactRow) (types.Artifact, error) {
	a := types.Artifact{
		ID:        row.ID,
		Type:      types.ArtifactType(row.Type),
		Producer:  row.Producer,
		Status:    types.ArtifactStatus(row.Status),
		Version:   row.Version,
		CreatedAt: row.CreatedAt,
	}
	if len(row.Content) > 0 {
		if err := json.Unmarshal(row.Content, &a.Content); err != nil {
			return types.Artifact{}, fmt.Errorf("unmarshal content: %w", err)
		}
	}
	if len(row.Metadata) > 0 {
		if err := json.Unmarshal(row.Metadata, &a.Metadata); err != nil {
			return types.Artifact{}, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	return a, nil
}
