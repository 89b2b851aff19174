package migration

import (
	"database/sql"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"
)

// newTestDB はテスト用のインメモリSQLiteデータベースを生成する。
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("インメモリDBの作成に失敗: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

// TestRun はマイグレーションの適用と再適用のテスト。
func TestRun(t *testing.T) {
	t.Parallel()

	t.Run("マイグレーションをバージョン順に適用する", func(t *testing.T) {
		t.Parallel()
		db := newTestDB(t)

		fsys := fstest.MapFS{
			"migrations/000002_add_column.up.sql": &fstest.MapFile{
				Data: []byte("ALTER TABLE items ADD COLUMN note TEXT"),
			},
			"migrations/000001_create_items.up.sql": &fstest.MapFile{
				Data: []byte("CREATE TABLE items (id TEXT PRIMARY KEY)"),
			},
		}

		if err := Run(db, fsys, "migrations"); err != nil {
			t.Fatalf("マイグレーションの適用に失敗: %v", err)
		}

		// 2番目のマイグレーションで追加されたカラムに書き込めること
		if _, err := db.Exec("INSERT INTO items (id, note) VALUES ('a', 'hello')"); err != nil {
			t.Errorf("マイグレーション後のINSERTに失敗: %v", err)
		}

		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
			t.Fatalf("バージョン件数の取得に失敗: %v", err)
		}
		if count != 2 {
			t.Errorf("適用済みバージョン数: got %d, want 2", count)
		}
	})

	t.Run("適用済みマイグレーションはスキップされる", func(t *testing.T) {
		t.Parallel()
		db := newTestDB(t)

		fsys := fstest.MapFS{
			"migrations/000001_create_items.up.sql": &fstest.MapFile{
				Data: []byte("CREATE TABLE items (id TEXT PRIMARY KEY)"),
			},
		}

		if err := Run(db, fsys, "migrations"); err != nil {
			t.Fatalf("1回目の適用に失敗: %v", err)
		}
		// 2回目はCREATE TABLEが再実行されずエラーにならない
		if err := Run(db, fsys, "migrations"); err != nil {
			t.Errorf("2回目の適用に失敗: %v", err)
		}
	})

	t.Run("命名規則に合わないファイルは無視される", func(t *testing.T) {
		t.Parallel()
		db := newTestDB(t)

		fsys := fstest.MapFS{
			"migrations/000001_create_items.up.sql": &fstest.MapFile{
				Data: []byte("CREATE TABLE items (id TEXT PRIMARY KEY)"),
			},
			"migrations/README.md": &fstest.MapFile{
				Data: []byte("not sql"),
			},
			"migrations/noversion.up.sql": &fstest.MapFile{
				Data: []byte("SELECT 1"),
			},
		}

		if err := Run(db, fsys, "migrations"); err != nil {
			t.Fatalf("マイグレーションの適用に失敗: %v", err)
		}

		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
			t.Fatalf("バージョン件数の取得に失敗: %v", err)
		}
		if count != 1 {
			t.Errorf("適用済みバージョン数: got %d, want 1", count)
		}
	})

	t.Run("SQLが不正な場合はエラーを返しバージョンを記録しない", func(t *testing.T) {
		t.Parallel()
		db := newTestDB(t)

		fsys := fstest.MapFS{
			"migrations/000001_broken.up.sql": &fstest.MapFile{
				Data: []byte("THIS IS NOT SQL"),
			},
		}

		if err := Run(db, fsys, "migrations"); err == nil {
			t.Fatal("不正なSQLでエラーになりませんでした")
		}

		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
			t.Fatalf("バージョン件数の取得に失敗: %v", err)
		}
		if count != 0 {
			t.Errorf("失敗したマイグレーションが記録されています: count=%d", count)
		}
	})
}
