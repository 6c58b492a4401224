package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// AskAction はプリロードコーパスに対して単発の質問を実行するコマンドのアクション。
// 使い捨てのセッションを作成し、回答と参照したツールの呼び出し履歴を標準出力へ表示する。
func AskAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	question := cmd.String("question")

	if question == "" {
		return fmt.Errorf("--question は必須です")
	}

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}

	sessions := appCtx.Container.Sessions

	id, err := sessions.Create()
	if err != nil {
		return fmt.Errorf("セッションの作成に失敗: %w", err)
	}
	defer sessions.Delete(id)

	reply, err := sessions.Submit(ctx, id, question, nil)
	if err != nil {
		return fmt.Errorf("質問の処理に失敗: %w", err)
	}

	if cmd.Bool("show-steps") && len(reply.Steps) > 0 {
		fmt.Println("参照したツール:")
		for _, step := range reply.Steps {
			fmt.Printf("  - %s (クエリ: %s)\n", step.Tool, step.Query)
		}
		fmt.Println()
	}

	fmt.Println(reply.Answer)

	return nil
}
