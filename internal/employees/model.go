package employees

// Employee は employees テーブルの1行を表す。
// テーブル自体は外部の同期スクリプトが管理しており、
// このパッケージは読み取り専用のディレクトリとして使う。
type Employee struct {
	EmployeeID int64  `json:"employee_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Active     bool   `json:"active"`
}
