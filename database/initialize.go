package database

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"polyglot.link/configs/configslog"
	"polyglot.link/translation"
)

// Initialize runs schema migration inside a single transaction. Every
// registered translatable entity gets both of its tables, the linkage
// uniqueness and its partitioned constraint sets. Rollback on any failure
// leaves the database untouched.
func Initialize(db *gorm.DB, migrate bool) {
	if !migrate {
		configslog.SLog.Info("Migrate flag not set, nothing to do.")
		return
	}

	tx := db.Begin()
	if tx.Error != nil {
		configslog.Log.Fatal("Could not begin database transaction", zap.Error(tx.Error))
		return
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			configslog.Log.Fatal("Database initialization failed (panic)", zap.Any("panic_info", r))
		} else if err := tx.Error; err != nil && err != gorm.ErrInvalidTransaction {
			configslog.SLog.Warn("Rolling back after initialization error.", zap.Error(err))
			rbErr := tx.Rollback().Error
			if rbErr != nil && rbErr != gorm.ErrInvalidTransaction {
				configslog.Log.Error("Additional error during rollback", zap.Error(rbErr))
			}
		}
	}()

	configslog.SLog.Info("Database initialization starting...")

	if err := RunMigrationsInOrder(tx); err != nil {
		configslog.Log.Error("Migration failed", zap.Error(err))
		return
	}

	configslog.SLog.Info("Committing...")
	if err := tx.Commit().Error; err != nil {
		tx.Error = err
		configslog.Log.Error("Commit failed", zap.Error(err))
		return
	}

	configslog.SLog.Info("Database initialization completed successfully")
}

// RunMigrationsInOrder migrates every registered entity in registry order
// (alphabetical by entity name, so reruns are deterministic).
func RunMigrationsInOrder(db *gorm.DB) error {
	configslog.SLog.Info("Running migrations in order...")

	for _, s := range translation.Schemas() {
		configslog.SLog.Infof(" -> Migrating %s...", s.Name)
		if err := MigrateEntityTables(db, s); err != nil {
			configslog.Log.Error("Migration failed for entity",
				zap.String("entity", s.Name), zap.Error(err))
			return err
		}
		configslog.SLog.Infof(" -> %s migrated.", s.Name)
	}

	configslog.SLog.Info("All migrations ran successfully.")
	return nil
}

// MigrateEntityTables creates or updates the shared and translation tables
// of one entity, then its indexes: the internal (language_code, master_id)
// uniqueness, the linkage foreign key, and the declared constraint sets on
// whichever table each one landed.
func MigrateEntityTables(db *gorm.DB, s *translation.Schema) error {
	if err := db.AutoMigrate(s.NewShared()); err != nil {
		return fmt.Errorf("migrating %s: %w", s.SharedTable, err)
	}
	if err := db.Table(s.Table).AutoMigrate(s.NewRecord("")); err != nil {
		return fmt.Errorf("migrating %s: %w", s.Table, err)
	}

	stmts := []string{
		fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS %s_language_master_key ON %s (language_code, master_id)",
			s.Table, s.Table),
		fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT IF EXISTS fk_%s_master", s.Table, s.Table),
		fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT fk_%s_master FOREIGN KEY (master_id) REFERENCES %s (id) ON DELETE CASCADE",
			s.Table, s.Table, s.SharedTable),
	}

	for i, set := range s.SharedUnique {
		cols, err := s.SharedColumns(set)
		if err != nil {
			return err
		}
		stmts = append(stmts, uniqueIndexSQL(s.SharedTable, i, cols))
	}
	for i, set := range s.TranslatedUnique {
		cols, err := s.TranslationColumns(set)
		if err != nil {
			return err
		}
		if len(cols) == 2 && cols[0] == "language_code" && cols[1] == "master_id" {
			continue
		}
		stmts = append(stmts, uniqueIndexSQL(s.Table, i, cols))
	}
	for i, set := range s.SharedIndexes {
		cols, err := s.SharedColumns(set)
		if err != nil {
			return err
		}
		stmts = append(stmts, indexSQL(s.SharedTable, i, cols))
	}
	for i, set := range s.TranslatedIndexes {
		cols, err := s.TranslationColumns(set)
		if err != nil {
			return err
		}
		stmts = append(stmts, indexSQL(s.Table, i, cols))
	}

	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("executing %q: %w", stmt, err)
		}
	}
	return nil
}

func uniqueIndexSQL(table string, n int, cols []string) string {
	return fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS %s_uniq_%d ON %s (%s)",
		table, n, table, strings.Join(cols, ", "))
}

func indexSQL(table string, n int, cols []string) string {
	return fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_idx_%d ON %s (%s)",
		table, n, table, strings.Join(cols, ", "))
}
