package logger

import "github.com/ideamans/go-l10n"

func init() {
	l10n.Register("ja", l10n.LexiconMap{
		// Session
		"Starting %d pipelines":           "%d 本のパイプラインを開始します",
		"Pipeline %s failed to start: %v": "パイプライン %s の開始に失敗しました: %v",
		"Pipeline %s (%s) shut down":      "パイプライン %s (%s) を停止しました",
		"Interrupted, shutting down...":   "中断されました。シャットダウン中...",
		"Session finished: %d recordings": "セッション終了: 録画 %d 件",
		"Summary written to %s":           "サマリーを %s に書き出しました",
		"Failed to write summary: %s":     "サマリーの書き込みに失敗しました: %s",
		"Request %s for %s":               "リクエスト %s (%s)",
		"Restart of %s failed: %v":        "%s の再開に失敗しました: %v",

		// Capture
		"Capture started: %s (%s, %dx%d)":             "キャプチャ開始: %s (%s, %dx%d)",
		"Failed to open %s (%s): %v":                  "%s (%s) を開けませんでした: %v",
		"End of stream: %s":                           "ストリーム終端: %s",
		"Read failed on %s: %v":                       "%s の読み取りに失敗しました: %v",
		"Read still blocked after %v, closing source": "%v 経過しても読み取りが終わらないためソースを閉じます",
		"Close source: %v":                            "ソースを閉じる: %v",
		"Snapshot saved: %s":                          "スナップショットを保存しました: %s",
		"Snapshot of %s failed: %v":                   "%s のスナップショットに失敗しました: %v",

		// Recording
		"Recording started: %s":                   "録画開始: %s",
		"Recording stopped: %s (%d frames)":       "録画停止: %s (%d フレーム)",
		"Recording of %s stopped: %v":             "%s の録画が停止しました: %v",
		"Recording finished with error: %s: %v":   "録画がエラーで終了しました: %s: %v",
		"Failed to start recording %s: %v":        "%s の録画開始に失敗しました: %v",
		"Failed to inspect recording %s: %v":      "録画 %s の検査に失敗しました: %v",
		"Failed to remove empty recording %s: %v": "空の録画 %s の削除に失敗しました: %v",

		// Convert and display
		"Dropped frame %d":   "フレーム %d を破棄しました",
		"Displayed %.1f fps": "表示 %.1f fps",

		// Disk
		"Failed to query free space on %s: %v":                  "%s の空き容量を取得できませんでした: %v",
		"Disk space below %s (%s free): all recordings stopped": "空き容量が %s を下回りました (残り %s): すべての録画を停止しました",

		// Viewer
		"Viewer listening on %s":                 "ビューアを %s で待ち受けています",
		"Viewer stopped: %v":                     "ビューアが停止しました: %v",
		"Viewer client connected: %s":            "ビューアクライアント接続: %s",
		"Viewer client disconnected: %s":         "ビューアクライアント切断: %s",
		"Unknown control request %q from viewer": "ビューアからの不明なリクエスト %q",

		// Stills
		"Assembling %d stills into %s":         "%d 枚の静止画を %s にまとめています",
		"%d stills skipped":                    "%d 枚の静止画をスキップしました",
		"Skipping %s: %v":                      "%s をスキップします: %v",
		"Stills video written: %s (%d frames)": "静止画動画を書き出しました: %s (%d フレーム)",
	})
}
