package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/hitoshi/booktracker/internal/client"
	"github.com/hitoshi/booktracker/internal/client/form"
	"github.com/hitoshi/booktracker/internal/client/localstore"
	"github.com/hitoshi/booktracker/internal/config"
	"github.com/hitoshi/booktracker/internal/entry"
	"github.com/hitoshi/booktracker/internal/model"
	"github.com/hitoshi/booktracker/internal/security"
)

// submitResult はsubmitサブコマンドの出力。
type submitResult struct {
	Mode  form.Mode    `json:"mode"`
	Entry *model.Entry `json:"entry"`
}

// submitClientOptions は疎通確認が長引かないよう再試行を1回に絞る。
var submitClientOptions = client.Options{
	RetryMax:     1,
	RetryWaitMin: 100 * time.Millisecond,
	RetryWaitMax: 500 * time.Millisecond,
	Timeout:      10 * time.Second,
}

// runSubmit はinから1件分のJSONを読み、フォームコントローラー経由で保存する。
// 保存した記録と使用した保存先をJSONでoutに書き出す。
func runSubmit(ctx context.Context, cfg *config.Config, in io.Reader, out io.Writer) error {
	var input entry.SubmitInput
	if err := json.NewDecoder(in).Decode(&input); err != nil {
		return fmt.Errorf("failed to decode submission: %w", err)
	}

	kv, closeKV, err := openLocalKV(ctx, cfg.LocalStorePath)
	if err != nil {
		return err
	}
	defer closeKV()

	opts := submitClientOptions
	opts.Logger = slog.Default()
	api := client.NewAPIClient(cfg.APIBaseURL, opts)

	controller := form.New(ctx, api, localstore.NewEntryStore(kv), security.NewTextSanitizer())
	saved, err := controller.Submit(ctx, input)
	if err != nil {
		return err
	}

	slog.Info("submit command completed",
		slog.String("mode", string(controller.Mode())),
		slog.Int64("id", saved.ID),
	)
	return json.NewEncoder(out).Encode(submitResult{Mode: controller.Mode(), Entry: saved})
}

// openLocalKV はLOCAL_STORE_PATHが設定されていればSQLite、なければメモリのKVを開く。
func openLocalKV(ctx context.Context, path string) (localstore.KV, func(), error) {
	if path == "" {
		return localstore.NewMemoryKV(), func() {}, nil
	}
	kv, err := localstore.OpenSQLite(ctx, path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open local store: %w", err)
	}
	return kv, func() { kv.Close() }, nil
}
