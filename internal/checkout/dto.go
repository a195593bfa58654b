package checkout

import "time"

// スキャン確定リクエスト（Webクライアントからのトグル確定）
// スキャナ単独のスキャンはサービス層の ScanInput を直接使う。
type ScanRequest struct {
	Barcode string `json:"barcode" binding:"required"`
	Actor   string `json:"actor" binding:"required"`
	// "2006-01-02" 形式。貸出（in→out）時は必須。
	ExpectedReturnDate *string `json:"expected_return_date,omitempty"`
	Description        *string `json:"description,omitempty"`
}

// スキャン確定レスポンス
type ScanResponse struct {
	Barcode  string    `json:"barcode"`
	Status   Status    `json:"status"`
	Action   Action    `json:"action"`
	Actor    string    `json:"actor"`
	LogULID  string    `json:"log_ulid"`
	LoggedAt time.Time `json:"logged_at"`
	Created  bool      `json:"created"`
}

// 表示用の欠損値マーカー。nullではなく明示的な "N/A" を返す。
const NotApplicable = "N/A"

// ItemView: ダッシュボード表示用の1アイテム。
// 最新ログと結合済みで、欠損値は "N/A" に落としてある。
type ItemView struct {
	Barcode            string `json:"barcode"`
	Status             Status `json:"status"`
	CheckedOutBy       string `json:"checked_out_by"`
	ActorName          string `json:"actor_name"`
	ExpectedReturnDate string `json:"expected_return_date"`
	Description        string `json:"description"`
	LastAction         string `json:"last_action"`
	LastActionAt       string `json:"last_action_at"`
}

// LogView: 履歴一覧用の1ログ
type LogView struct {
	LogULID  string    `json:"log_ulid"`
	Barcode  string    `json:"barcode"`
	Action   Action    `json:"action"`
	Actor    string    `json:"actor"`
	LoggedAt time.Time `json:"logged_at"`
}
