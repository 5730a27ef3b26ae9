package i18n

import (
	"strings"
	"sync"
)

// Message codes used by the form fields.
const (
	UploadErrorTitle = "upload_error_title"
	UploadFailed     = "upload_failed"
	DropHelpSingle   = "drop_help_single"
	DropHelpMultiple = "drop_help_multiple"
	InvalidFileName  = "invalid_file_name"
	StorageRequired  = "storage_required"
	ArrayOfString    = "array_of_string"
)

// Translator retrieves localized messages for message codes.
// data provides optional values to embed in the message (for example,
// "error" or "file").
type Translator interface {
	Message(code string, data map[string]string) string
}

// dictTranslator is the built-in dictionary-based Translator.
type dictTranslator struct{ lang string }

func (t dictTranslator) Message(code string, data map[string]string) string {
	var msg string
	switch t.lang {
	case "ja":
		switch code {
		case UploadErrorTitle:
			msg = "ファイルのアップロードに失敗しました"
		case UploadFailed:
			msg = "アップロードエラー: {error}"
		case DropHelpSingle:
			msg = "ここにファイルをドラッグ＆ドロップするか、クリックして選択してください"
		case DropHelpMultiple:
			msg = "ここにファイルをドラッグ＆ドロップするか、クリックして複数選択してください"
		case InvalidFileName:
			msg = "有効なファイル名を返す必要があります"
		case StorageRequired:
			msg = "ストレージ設定が必要です"
		case ArrayOfString:
			msg = "配列のストレージフィールドは文字列型である必要があります"
		}
	default: // "en"
		switch code {
		case UploadErrorTitle:
			msg = "Error uploading file"
		case UploadFailed:
			msg = "Error uploading file: {error}"
		case DropHelpSingle:
			msg = "Drag 'n' drop a file here, or click to select one"
		case DropHelpMultiple:
			msg = "Drag 'n' drop some files here, or click to select files"
		case InvalidFileName:
			msg = "You need to return a valid filename"
		case StorageRequired:
			msg = "Storage meta must be specified"
		case ArrayOfString:
			msg = "Storage field using array must be of data type string"
		}
	}
	if msg == "" {
		return code
	}
	return fill(msg, data)
}

// fill replaces {key} placeholders with data values.
func fill(msg string, data map[string]string) string {
	if len(data) == 0 || !strings.Contains(msg, "{") {
		return msg
	}
	pairs := make([]string, 0, 2*len(data))
	for k, v := range data {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(msg)
}

var (
	mu                sync.RWMutex
	currentTranslator Translator = dictTranslator{lang: "en"}
)

// SetLanguage switches the built-in Translator language ("en"/"ja").
func SetLanguage(lang string) {
	if lang != "ja" {
		lang = "en"
	}
	SetTranslator(dictTranslator{lang: lang})
}

// SetTranslator replaces the Translator implementation (not limited to the
// dictionary version).
func SetTranslator(tr Translator) {
	mu.Lock()
	defer mu.Unlock()
	if tr == nil {
		currentTranslator = dictTranslator{lang: "en"}
		return
	}
	currentTranslator = tr
}

// T fetches a message for the given code using the current Translator.
func T(code string, data map[string]string) string {
	mu.RLock()
	tr := currentTranslator
	mu.RUnlock()
	return tr.Message(code, data)
}
