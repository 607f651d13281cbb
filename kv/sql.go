package kv

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ceyewan/asnkeeper/xerrors"
)

// entryModel kv_entries 表
type entryModel struct {
	Key     string `gorm:"column:entry_key;primaryKey;size:255"`
	Value   []byte `gorm:"column:value"`
	Version uint64 `gorm:"column:version;not null"`
}

func (entryModel) TableName() string { return "kv_entries" }

// sqlDriver 基于 GORM 的关系型实现，支持 SQLite 与 MySQL
type sqlDriver struct {
	db   *gorm.DB
	name string
}

var errSQLConflict = errors.New("kv: sql version conflict")

// NewSQL 在给定的 GORM 连接上创建驱动，并自动迁移 kv_entries 表。
//
// 连接由调用方（通常是 connector）持有，Close 不会关闭它。
func NewSQL(ctx context.Context, db *gorm.DB) (Driver, error) {
	if db == nil {
		return nil, xerrors.Wrap(ErrInvalidConfig, "gorm db is nil")
	}
	if err := db.WithContext(ctx).AutoMigrate(&entryModel{}); err != nil {
		return nil, classifySQLError(err)
	}
	return &sqlDriver{db: db, name: db.Dialector.Name()}, nil
}

func (d *sqlDriver) Name() string { return d.name }

func (d *sqlDriver) Get(ctx context.Context, key string) (Entry, error) {
	var m entryModel
	err := d.db.WithContext(ctx).Where("entry_key = ?", key).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Entry{Key: key}, nil
	}
	if err != nil {
		return Entry{}, classifySQLError(err)
	}
	return Entry{Key: m.Key, Value: m.Value, Version: m.Version}, nil
}

// Commit 在一个 SQL 事务中校验版本并写入。
//
// 不存在的 key 用 INSERT ... ON CONFLICT DO NOTHING 创建，已存在的 key 用
// UPDATE ... WHERE version = ? 更新，影响行数为 0 即视为冲突。
func (d *sqlDriver) Commit(ctx context.Context, checks []Check, sets []Mutation) (bool, error) {
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		versions := make(map[string]uint64, len(checks)+len(sets))
		for _, c := range checks {
			v, err := d.currentVersion(tx, c.Key)
			if err != nil {
				return err
			}
			if v != c.Version {
				return errSQLConflict
			}
			versions[c.Key] = v
		}

		for _, m := range sets {
			v, checked := versions[m.Key]
			if !checked {
				var err error
				if v, err = d.currentVersion(tx, m.Key); err != nil {
					return err
				}
			}

			var res *gorm.DB
			if v == 0 {
				res = tx.Clauses(clause.OnConflict{DoNothing: true}).
					Create(&entryModel{Key: m.Key, Value: m.Value, Version: 1})
			} else {
				res = tx.Model(&entryModel{}).
					Where("entry_key = ? AND version = ?", m.Key, v).
					Updates(map[string]any{"value": m.Value, "version": v + 1})
			}
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return errSQLConflict
			}
			versions[m.Key] = v + 1
		}
		return nil
	})

	switch {
	case errors.Is(err, errSQLConflict):
		return false, nil
	case err != nil:
		return false, classifySQLError(err)
	default:
		return true, nil
	}
}

// currentVersion 读取 key 的版本，MySQL 下加行锁，SQLite 的事务本身即为串行
func (d *sqlDriver) currentVersion(tx *gorm.DB, key string) (uint64, error) {
	q := tx.Select("version").Where("entry_key = ?", key)
	if d.name == DriverMySQL {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var m entryModel
	err := q.Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return m.Version, nil
}

func (d *sqlDriver) Close() error { return nil }

// classifySQLError 将锁等待类错误映射为 ErrBusy
func classifySQLError(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "database is locked"),
		strings.Contains(msg, "SQLITE_BUSY"),
		strings.Contains(msg, "Deadlock found"),
		strings.Contains(msg, "Lock wait timeout"):
		return xerrors.Wrap(ErrBusy, msg)
	default:
		return err
	}
}
