package scanner

import "strings"

// KeyEvent: スキャナからの1キーイベント。
// Code は evdev のキー名（例: "KEY_A"）。
type KeyEvent struct {
	Code    string
	Pressed bool
}

// Decoder: キーイベント列をバーコード文字列へ組み立てる。
// ブロックせず、失敗もしない。未対応キーやリリースイベントは
// 黙って読み飛ばす（ハードウェアの揺れでループを落とさないため）。
// バーコードの形式検証はここではやらない（checkout側の責務）。
type Decoder struct {
	buf []rune
}

func NewDecoder() *Decoder { return &Decoder{} }

// Feed: 1イベントを処理する。Enter押下でバッファを確定して返す。
// バッファが空のままEnterが来た場合は何も起きない（ok=false）。
func (d *Decoder) Feed(ev KeyEvent) (string, bool) {
	if !ev.Pressed {
		return "", false
	}

	switch ev.Code {
	case "KEY_ENTER", "KEY_KPENTER":
		if len(d.buf) == 0 {
			return "", false
		}
		code := string(d.buf)
		d.buf = d.buf[:0]
		return code, true
	}

	// 修飾キー（SHIFT等）は1文字も追加しない。キーイベントを
	// 無差別に文字へ落とすとバーコードが壊れる。
	if r, ok := keyRune(ev.Code); ok {
		d.buf = append(d.buf, r)
	}
	return "", false
}

// Reset: 読み取り途中のバッファを破棄する
func (d *Decoder) Reset() { d.buf = d.buf[:0] }

// keyRune: キー名から1文字を導く。英数字は小文字に揃える。
// マッピングできないキーは ok=false。
func keyRune(code string) (rune, bool) {
	name, ok := strings.CutPrefix(code, "KEY_")
	if !ok {
		return 0, false
	}

	if len(name) == 1 {
		r := rune(name[0])
		switch {
		case r >= 'A' && r <= 'Z':
			return r - 'A' + 'a', true
		case r >= '0' && r <= '9':
			return r, true
		}
		return 0, false
	}

	// テンキー数字 (KEY_KP0 〜 KEY_KP9)
	if len(name) == 3 && strings.HasPrefix(name, "KP") && name[2] >= '0' && name[2] <= '9' {
		return rune(name[2]), true
	}

	switch name {
	case "MINUS":
		return '-', true
	case "DOT":
		return '.', true
	case "SLASH":
		return '/', true
	}
	return 0, false
}
