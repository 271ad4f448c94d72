// Package main provides localization for the multicam CLI.
package main

import (
	"github.com/ideamans/go-l10n"
)

func init() {
	// Register Japanese translations for CLI messages.
	l10n.Register("ja", l10n.LexiconMap{
		// Root command
		"Capture, display and record several cameras and video files at once.": "複数のカメラと動画ファイルを同時に取り込み、表示し、録画します。",

		// Commands
		"Capture, display and record every configured source.": "設定された全ソースを取り込み、表示し、録画",
		"Assemble a directory of still images into a video.":   "ディレクトリ内の静止画を動画にまとめる",
		"Show container metadata of a recorded video.":         "録画済み動画のコンテナ情報を表示",
		"List capture devices.":                                "キャプチャデバイスを一覧表示",
		"Show version information.":                            "バージョン情報を表示",

		// Probe output
		"Codec: %s":                  "コーデック: %s",
		"Size: %dx%d":                "サイズ: %dx%d",
		"Frames: %d, Duration: %dms": "フレーム数: %d, 再生時間: %dms",
		"Fragmented MP4":             "フラグメント化MP4",

		// Devices output
		"No capture devices found": "キャプチャデバイスが見つかりません",

		// Version
		"multicam version %s": "multicam バージョン %s",

		// Summary content
		"Session Summary":     "セッションサマリー",
		"Generated":           "生成日時",
		"Started":             "開始日時",
		"Duration":            "時間",
		"Settings":            "設定",
		"Setting":             "項目",
		"Value":               "値",
		"Videos Directory":    "録画ディレクトリ",
		"Images Directory":    "画像ディレクトリ",
		"Container":           "コンテナ",
		"Display Scale":       "表示倍率",
		"Convert Every Frame": "全フレーム変換",
		"Quality":             "品質",
		"Disk":                "ディスク",
		"Last Status":         "最終状態",
		"Floor":               "下限",

		"Free space fell below the floor; recordings were stopped": "空き容量が下限を下回ったため録画を停止しました",

		"Sources":               "ソース",
		"Source":                "ソース",
		"Target":                "対象",
		"Frames":                "フレーム数",
		"Capture FPS":           "取り込みFPS",
		"Converted":             "変換数",
		"Convert Drops":         "変換ドロップ",
		"Display Drops":         "表示ドロップ",
		"Stalls":                "停滞",
		"Reallocations":         "再確保",
		"Failed to open":        "オープン失敗",
		"Recordings":            "録画",
		"File":                  "ファイル",
		"Codec":                 "コーデック",
		"Size":                  "サイズ",
		"Generated by multicam": "生成: multicam",
	})
}
