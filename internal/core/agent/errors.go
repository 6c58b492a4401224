package agent

import "errors"

var (
	// ErrModelUnavailable は言語モデルプロバイダに到達できない、
	// またはリクエストが拒否された場合のエラー
	ErrModelUnavailable = errors.New("language model unavailable")

	// ErrIterationLimit はツール呼び出しループが上限回数に達しても
	// 最終回答が得られなかった場合のエラー
	ErrIterationLimit = errors.New("iteration limit exceeded")
)
