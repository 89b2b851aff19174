// ユーザー管理サービスのエントリポイント。
// ユーザーの登録・認証・プロフィール管理と、ディレクトリのSQLiteストレージを担当する。
package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/nao1215/moneyhub/internal/user"
)

func main() {
	// .envはローカル開発用の任意ファイル。存在しなくてもよい。
	_ = godotenv.Load()

	cfg := user.LoadConfig()
	server, err := user.NewServer(cfg)
	if err != nil {
		log.Fatalf("ユーザーサーバーの初期化に失敗: %v", err)
	}

	log.Printf("ユーザーサービスを起動します: :%s", cfg.Port)
	if err := server.Run(); err != nil {
		log.Fatalf("ユーザーサービスの起動に失敗: %v", err)
	}
}
