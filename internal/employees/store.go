package employees

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"sync"
)

var ErrNotFound = errors.New("employee not found")

// Store: 従業員ディレクトリの参照先
type Store interface {
	// Resolve: メールアドレスまたは氏名で有効な従業員を引く
	Resolve(ctx context.Context, id string) (Employee, error)
	// List: 有効な従業員の一覧（氏名順）
	List(ctx context.Context) ([]Employee, error)
}

// ===== MySQL =====

type MySQLStore struct{ db *sql.DB }

func NewMySQLStore(db *sql.DB) *MySQLStore { return &MySQLStore{db: db} }

func (s *MySQLStore) Resolve(ctx context.Context, id string) (Employee, error) {
	const q = `
	SELECT employee_id, name, email, active
	FROM employees
	WHERE (email = ? OR name = ?) AND active = 1
	LIMIT 1`

	var e Employee
	err := s.db.QueryRowContext(ctx, q, id, id).Scan(&e.EmployeeID, &e.Name, &e.Email, &e.Active)
	if err != nil {
		if err == sql.ErrNoRows {
			return Employee{}, ErrNotFound
		}
		return Employee{}, err
	}
	return e, nil
}

func (s *MySQLStore) List(ctx context.Context) ([]Employee, error) {
	const q = `
	SELECT employee_id, name, email, active
	FROM employees
	WHERE active = 1
	ORDER BY name`

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Employee
	for rows.Next() {
		var e Employee
		if err := rows.Scan(&e.EmployeeID, &e.Name, &e.Email, &e.Active); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ===== メモリ（storage: memory とテスト用） =====

type MemoryStore struct {
	mu   sync.RWMutex
	list []Employee
}

func NewMemoryStore(list []Employee) *MemoryStore {
	cp := make([]Employee, len(list))
	copy(cp, list)
	return &MemoryStore{list: cp}
}

func (s *MemoryStore) Resolve(_ context.Context, id string) (Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.list {
		if !e.Active {
			continue
		}
		if strings.EqualFold(e.Email, id) || e.Name == id {
			return e, nil
		}
	}
	return Employee{}, ErrNotFound
}

func (s *MemoryStore) List(_ context.Context) ([]Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Employee, 0, len(s.list))
	for _, e := range s.list {
		if e.Active {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
