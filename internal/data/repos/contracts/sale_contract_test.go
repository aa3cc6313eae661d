package contracts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/banquito-core/formalization-backend/internal/data/repos/testutil"
	types "github.com/banquito-core/formalization-backend/internal/domain"
	"github.com/banquito-core/formalization-backend/internal/platform/storage"
)

func TestSaleContractRepoRoundTrip(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	repo := NewSaleContractRepo(db, testutil.Logger(t))
	ctx := context.Background()

	seeded := testutil.SeedSaleContract(t, ctx, tx, 9401, "VTA-9401", types.SalePendingSignature)

	got, err := repo.GetByRequestID(ctx, tx, 9401)
	if err != nil {
		t.Fatalf("GetByRequestID: %v", err)
	}
	if got.ID != seeded.ID {
		t.Fatalf("GetByRequestID: unexpected result: %+v", got)
	}

	exists, err := repo.ExistsByContractNumber(ctx, tx, "VTA-9401")
	if err != nil {
		t.Fatalf("ExistsByContractNumber: %v", err)
	}
	if !exists {
		t.Fatalf("ExistsByContractNumber: expected true")
	}

	now := time.Now().UTC()
	seeded.SignedAt = &now
	seeded.SignedFileRef = "s3://contracts/VTA-9401.pdf"
	seeded.State = types.SaleSigned
	if err := repo.UpdateVersioned(ctx, tx, seeded); err != nil {
		t.Fatalf("UpdateVersioned: %v", err)
	}

	reloaded, err := repo.GetByID(ctx, tx, seeded.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if reloaded.State != types.SaleSigned || reloaded.Version != 2 || reloaded.SignedAt == nil {
		t.Fatalf("reloaded sale contract: %+v", reloaded)
	}

	stale := *reloaded
	stale.Version = 1
	if err := repo.UpdateVersioned(ctx, tx, &stale); !errors.Is(err, storage.ErrStaleVersion) {
		t.Fatalf("stale write: expected ErrStaleVersion, got %v", err)
	}
}

func TestSaleContractRepoFilter(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	repo := NewSaleContractRepo(db, testutil.Logger(t))
	ctx := context.Background()

	a := testutil.SeedSaleContract(t, ctx, tx, 9501, "VTA-XX-1", types.SalePendingSignature)
	b := testutil.SeedSaleContract(t, ctx, tx, 9502, "VTA-XX-2", types.SaleSigned)

	signed := testutil.PtrSaleState(types.SaleSigned)

	got, total, err := repo.List(ctx, tx, types.SaleContractFilter{State: signed, ContractNumber: "xx"}, 0, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 || len(got) != 1 || got[0].ID != b.ID {
		t.Fatalf("List signed+substring: got %d rows total %d", len(got), total)
	}

	got, total, err = repo.List(ctx, tx, types.SaleContractFilter{ContractNumber: "XX"}, 0, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 2 || len(got) != 2 || got[0].ID != a.ID {
		t.Fatalf("List substring: got %d rows total %d", len(got), total)
	}
}
