package contracts

import (
	"context"
	"errors"
	"testing"

	"github.com/banquito-core/formalization-backend/internal/data/repos/testutil"
	types "github.com/banquito-core/formalization-backend/internal/domain"
	"github.com/banquito-core/formalization-backend/internal/platform/storage"
)

func TestCreditContractRepoCRUD(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	repo := NewCreditContractRepo(db, testutil.Logger(t))
	ctx := context.Background()

	seeded := testutil.SeedCreditContract(t, ctx, tx, 9001, "CRD-9001", types.CreditPendingSignature)

	got, err := repo.GetByID(ctx, tx, seeded.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.ContractNumber != "CRD-9001" {
		t.Fatalf("GetByID: unexpected contract: %+v", got)
	}

	if _, err := repo.GetByID(ctx, tx, seeded.ID+100000); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("GetByID (missing): expected ErrNotFound, got %v", err)
	}

	byNumber, err := repo.GetByContractNumber(ctx, tx, "CRD-9001")
	if err != nil {
		t.Fatalf("GetByContractNumber: %v", err)
	}
	if byNumber.ID != seeded.ID {
		t.Fatalf("GetByContractNumber: unexpected result: %+v", byNumber)
	}

	byRequest, err := repo.GetByRequestID(ctx, tx, 9001)
	if err != nil {
		t.Fatalf("GetByRequestID: %v", err)
	}
	if byRequest.ID != seeded.ID {
		t.Fatalf("GetByRequestID: unexpected result: %+v", byRequest)
	}

	exists, err := repo.ExistsByRequestID(ctx, tx, 9001)
	if err != nil {
		t.Fatalf("ExistsByRequestID: %v", err)
	}
	if !exists {
		t.Fatalf("ExistsByRequestID: expected true")
	}
	exists, err = repo.ExistsByContractNumber(ctx, tx, "CRD-MISSING")
	if err != nil {
		t.Fatalf("ExistsByContractNumber: %v", err)
	}
	if exists {
		t.Fatalf("ExistsByContractNumber: expected false")
	}
}

func TestCreditContractRepoDuplicateKey(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	repo := NewCreditContractRepo(db, testutil.Logger(t))
	ctx := context.Background()

	seeded := testutil.SeedCreditContract(t, ctx, tx, 9051, "CRD-9051", types.CreditPendingSignature)

	dup := *seeded
	dup.ID = 0
	dup.ContractNumber = "CRD-9052"
	if _, err := repo.Create(ctx, tx, &dup); !errors.Is(err, storage.ErrDuplicate) {
		t.Fatalf("duplicate request id insert: expected ErrDuplicate, got %v", err)
	}
}

func TestCreditContractRepoFilterResolution(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	repo := NewCreditContractRepo(db, testutil.Logger(t))
	ctx := context.Background()

	a := testutil.SeedCreditContract(t, ctx, tx, 9101, "CRD-AAA-1", types.CreditPendingSignature)
	b := testutil.SeedCreditContract(t, ctx, tx, 9102, "CRD-AAA-2", types.CreditActive)
	c := testutil.SeedCreditContract(t, ctx, tx, 9103, "CRD-BBB-1", types.CreditActive)

	active := testutil.PtrCreditState(types.CreditActive)

	cases := []struct {
		name    string
		filter  types.CreditContractFilter
		wantIDs []int64
	}{
		{"none", types.CreditContractFilter{}, []int64{a.ID, b.ID, c.ID}},
		{"state only", types.CreditContractFilter{State: active}, []int64{b.ID, c.ID}},
		{"number only case-insensitive", types.CreditContractFilter{ContractNumber: "aaa"}, []int64{a.ID, b.ID}},
		{"request only", types.CreditContractFilter{RequestID: testutil.PtrInt64(9103)}, []int64{c.ID}},
		{"state and number", types.CreditContractFilter{State: active, ContractNumber: "AAA"}, []int64{b.ID}},
		{"state and request", types.CreditContractFilter{State: active, RequestID: testutil.PtrInt64(9102)}, []int64{b.ID}},
		{"number and request", types.CreditContractFilter{ContractNumber: "BBB", RequestID: testutil.PtrInt64(9103)}, []int64{c.ID}},
		{"all three", types.CreditContractFilter{State: active, ContractNumber: "CRD", RequestID: testutil.PtrInt64(9102)}, []int64{b.ID}},
		{"all three no match", types.CreditContractFilter{State: active, ContractNumber: "BBB", RequestID: testutil.PtrInt64(9101)}, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, total, err := repo.List(ctx, tx, tc.filter, 0, 100)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if int(total) != len(tc.wantIDs) {
				t.Fatalf("List total = %d, want %d", total, len(tc.wantIDs))
			}
			if len(got) != len(tc.wantIDs) {
				t.Fatalf("List returned %d rows, want %d", len(got), len(tc.wantIDs))
			}
			for i, want := range tc.wantIDs {
				if got[i].ID != want {
					t.Errorf("List[%d].ID = %d, want %d", i, got[i].ID, want)
				}
			}
		})
	}
}

func TestCreditContractRepoPagination(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	repo := NewCreditContractRepo(db, testutil.Logger(t))
	ctx := context.Background()

	for i := int64(0); i < 5; i++ {
		testutil.SeedCreditContract(t, ctx, tx, 9200+i, "CRD-PAGE-"+string(rune('A'+i)), types.CreditActive)
	}

	page, total, err := repo.List(ctx, tx, types.CreditContractFilter{ContractNumber: "PAGE"}, 2, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 5 {
		t.Fatalf("total = %d, want 5", total)
	}
	if len(page) != 2 {
		t.Fatalf("page size = %d, want 2", len(page))
	}
}

func TestCreditContractRepoUpdateVersioned(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	repo := NewCreditContractRepo(db, testutil.Logger(t))
	ctx := context.Background()

	seeded := testutil.SeedCreditContract(t, ctx, tx, 9301, "CRD-9301", types.CreditPendingSignature)

	seeded.State = types.CreditActive
	if err := repo.UpdateVersioned(ctx, tx, seeded); err != nil {
		t.Fatalf("UpdateVersioned: %v", err)
	}
	if seeded.Version != 2 {
		t.Fatalf("version after update = %d, want 2", seeded.Version)
	}

	stale := *seeded
	stale.Version = 1
	if err := repo.UpdateVersioned(ctx, tx, &stale); !errors.Is(err, storage.ErrStaleVersion) {
		t.Fatalf("stale write: expected ErrStaleVersion, got %v", err)
	}

	missing := *seeded
	missing.ID = seeded.ID + 100000
	if err := repo.UpdateVersioned(ctx, tx, &missing); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("missing row: expected ErrNotFound, got %v", err)
	}

	reloaded, err := repo.GetByID(ctx, tx, seeded.ID)
	if err != nil {
		t.Fatalf("GetByID after update: %v", err)
	}
	if reloaded.State != types.CreditActive || reloaded.Version != 2 {
		t.Fatalf("reloaded contract: %+v", reloaded)
	}
}
