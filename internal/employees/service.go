package employees

import "context"

// Service: 外部所有の従業員ディレクトリへの読み取り窓口
type Service struct {
	store Store
}

func NewService(store Store) *Service { return &Service{store: store} }

func (s *Service) Resolve(ctx context.Context, id string) (Employee, error) {
	if id == "" {
		return Employee{}, ErrNotFound
	}
	return s.store.Resolve(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]Employee, error) {
	return s.store.List(ctx)
}
