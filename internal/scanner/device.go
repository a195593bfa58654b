package scanner

import (
	"fmt"
	"log"

	"github.com/holoplot/go-evdev"
)

// Source: キーイベントの取得元。ReadKey はブロックする。
// Close 後の ReadKey はエラーを返す（シャットダウン経路）。
type Source interface {
	ReadKey() (KeyEvent, error)
	Close() error
}

// Device: evdev 入力デバイスを Source に適合させる
type Device struct {
	dev  *evdev.InputDevice
	path string
}

// OpenDevice: パス指定でスキャナを開く。空文字なら自動検出。
func OpenDevice(path string) (*Device, error) {
	if path == "" {
		return autodetect()
	}
	dev, err := evdev.Open(path)
	if err != nil {
		return nil, fmt.Errorf("スキャナデバイスのオープン失敗 %s: %w", path, err)
	}
	return &Device{dev: dev, path: path}, nil
}

// autodetect: 最初に開けた入力デバイスを採用する。
// 複数デバイスが挿さっている環境では config の scanner.device で固定すること。
func autodetect() (*Device, error) {
	paths, err := evdev.ListDevicePaths()
	if err != nil {
		return nil, fmt.Errorf("入力デバイスの列挙失敗: %w", err)
	}
	for _, p := range paths {
		dev, err := evdev.Open(p.Path)
		if err != nil {
			log.Printf("[WARN] デバイスを開けない %s: %v", p.Path, err)
			continue
		}
		log.Printf("[INFO] scanner device: %s (%s)", p.Path, p.Name)
		return &Device{dev: dev, path: p.Path}, nil
	}
	return nil, fmt.Errorf("バーコードスキャナが見つからない")
}

func (d *Device) Path() string { return d.path }

// ReadKey: EV_KEY 以外のイベントは読み飛ばし、キーイベントだけ返す。
// Value は 1=押下 / 0=離し / 2=リピート。押下のみ Pressed=true。
func (d *Device) ReadKey() (KeyEvent, error) {
	for {
		ev, err := d.dev.ReadOne()
		if err != nil {
			return KeyEvent{}, err
		}
		if ev.Type != evdev.EV_KEY {
			continue
		}
		return KeyEvent{Code: ev.CodeName(), Pressed: ev.Value == 1}, nil
	}
}

func (d *Device) Close() error { return d.dev.Close() }
