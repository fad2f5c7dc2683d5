package extension

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	membership "github.com/xraph/membership"
	"github.com/xraph/membership/store"
	"github.com/xraph/membership/store/driver"
	"github.com/xraph/membership/store/memory"
)

type closeCountingStore struct {
	*memory.Store
	closes   int
	closeErr error
}

func (s *closeCountingStore) Close() error {
	s.closes++
	_ = s.Store.Close()
	return s.closeErr
}

var validCollection = membership.Config{
	Name:      "Altura Pass",
	Symbol:    "ALT",
	MaxSupply: 10,
	Admin:     "0xad0000000000000000000000000000000000ad01",
}

func TestBuildEngine(t *testing.T) {
	errClose := errors.New("close failed")

	tests := []struct {
		name       string
		collection membership.Config
		supplied   bool
		closeErr   error
		wantErr    bool
		wantCloses int
	}{
		{name: "opened store kept", collection: validCollection},
		{name: "opened store closed on failure", wantErr: true, wantCloses: 1},
		{name: "close error joined", closeErr: errClose, wantErr: true, wantCloses: 1},
		{name: "supplied store left open", supplied: true, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := &closeCountingStore{Store: memory.New(), closeErr: tt.closeErr}

			var e *Extension
			if tt.supplied {
				e = New(WithStore(st))
			} else {
				e = New()
			}
			opens := 0
			e.openStore = func(context.Context, driver.Config, *slog.Logger) (store.Store, error) {
				opens++
				return st, nil
			}
			e.config = mergeWithDefaults(e.config)
			e.config.Collection = tt.collection

			err := e.buildEngine(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("buildEngine error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, membership.ErrInvalidInput) {
				t.Errorf("err = %v, want ErrInvalidInput", err)
			}
			if tt.closeErr != nil && !errors.Is(err, tt.closeErr) {
				t.Errorf("err = %v, want joined close error", err)
			}
			if st.closes != tt.wantCloses {
				t.Errorf("Close calls = %d, want %d", st.closes, tt.wantCloses)
			}

			switch {
			case tt.supplied:
				if opens != 0 {
					t.Errorf("opened %d stores, want none", opens)
				}
				if e.store != st {
					t.Error("supplied store must be retained")
				}
			case tt.wantErr:
				if e.store != nil {
					t.Error("closed store must not be retained")
				}
			default:
				if e.engine == nil || e.store != st {
					t.Error("engine and store must be set")
				}
			}
		})
	}
}
