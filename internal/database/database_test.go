package database

import (
	"context"
	"math/big"
	"os"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/wnt/empyreal/client"
	"github.com/wnt/empyreal/types"
)

// TestConnectWithEmptyDSN tests that Connect refuses to dial without a DSN
func TestConnectWithEmptyDSN(t *testing.T) {
	db, err := Connect("")
	if err == nil {
		t.Error("Connect() should return an error when the dsn is empty")
	}
	if db != nil {
		t.Error("Connect() should return nil DB when connection fails")
	}
}

// TestConnectWithInvalidCredentials tests that Connect returns an error with invalid credentials
func TestConnectWithInvalidCredentials(t *testing.T) {
	if os.Getenv("RUN_DB_TESTS") != "true" {
		t.Skip("Skipping database connection test. Set RUN_DB_TESTS=true to enable.")
	}

	dsn := "host=localhost user=nonexistentuser password=wrongpassword dbname=nonexistentdb port=5432 sslmode=disable"
	db, err := Connect(dsn)
	if err == nil {
		t.Error("Connect() should return an error with invalid credentials")
	}
	if db != nil {
		t.Error("Connect() should return nil DB when connection fails")
	}
}

func testPair() *types.DexPair {
	fee := 0.3
	return &types.DexPair{
		FactoryAddress: common.HexToAddress("0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f"),
		Token0: &types.Token{TokenRecord: client.TokenRecord{
			ID: uuid.New(), Address: common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"),
			Name: "USD Coin", Symbol: "USDC", Decimals: 6, ChainID: 1,
		}},
		Token1: &types.Token{TokenRecord: client.TokenRecord{
			ID: uuid.New(), Address: common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"),
			Name: "Wrapped Ether", Symbol: "WETH", Decimals: 18, ChainID: 1,
		}},
		Address:         common.HexToAddress("0xB4e16d0168e52d35CaCD2c6185b44281Ec28C9Dc"),
		Index:           1,
		Fee:             &fee,
		Network:         types.Ethereum,
		BlockNumber:     10008355,
		TransactionHash: "0xd07cbde8",
	}
}

func TestModelConversion(t *testing.T) {
	pair := testPair()

	row := pairModel(pair)
	if row.Address != "0xB4e16d0168e52d35CaCD2c6185b44281Ec28C9Dc" {
		t.Errorf("pair address = %s, want checksummed hex", row.Address)
	}
	if row.ChainID != 1 || row.PairIndex != 1 || row.BlockNumber != 10008355 {
		t.Errorf("unexpected pair row %+v", row)
	}
	if row.FeePercentage == nil || *row.FeePercentage != 0.3 {
		t.Errorf("fee percentage not carried over")
	}

	token := tokenModel(pair.Token0)
	if token.TokenID != pair.Token0.ID.String() || token.Symbol != "USDC" || token.Decimals != 6 {
		t.Errorf("unexpected token row %+v", token)
	}

	start := time.Date(2024, 3, 1, 1, 0, 0, 0, time.FixedZone("CET", 3600))
	rows := intervalModels(7, []types.SwapInterval{{Start: start, Open: 1, Close: 2, TxCount: 3, PrevClose: 1}})
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0].PairID != 7 || rows[0].Start.Location() != time.UTC || !rows[0].Start.Equal(start) {
		t.Errorf("unexpected interval row %+v", rows[0])
	}
}

// TestStoreRoundTrip exercises the upserts against a real database
func TestStoreRoundTrip(t *testing.T) {
	if os.Getenv("RUN_DB_TESTS") != "true" {
		t.Skip("Skipping database connection test. Set RUN_DB_TESTS=true to enable.")
	}
	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		t.Skip("Skipping test because DATABASE_DSN environment variable is not set")
	}

	db, err := Connect(dsn)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	store := NewStore(db)
	ctx := context.Background()

	pair := testPair()
	pair.Address = common.BigToAddress(big.NewInt(time.Now().UnixNano()))

	id, err := store.SavePair(ctx, pair)
	if err != nil {
		t.Fatalf("SavePair() error = %v", err)
	}
	again, err := store.SavePair(ctx, pair)
	if err != nil {
		t.Fatalf("SavePair() second call error = %v", err)
	}
	if again != id {
		t.Errorf("SavePair() upsert returned id %d, want %d", again, id)
	}

	if _, found, err := store.LatestIntervalStart(ctx, id); err != nil || found {
		t.Fatalf("LatestIntervalStart() = %v, %v on an empty pair", found, err)
	}

	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	intervals := []types.SwapInterval{
		{Start: base, Open: 1, Close: 1.1},
		{Start: base.Add(time.Hour), Open: 1.1, Close: 1.2},
	}
	n, err := store.SaveIntervals(ctx, id, intervals)
	if err != nil || n != 2 {
		t.Fatalf("SaveIntervals() = %d, %v", n, err)
	}
	// Re-saving overlapping intervals must not duplicate rows
	if _, err := store.SaveIntervals(ctx, id, intervals[1:]); err != nil {
		t.Fatalf("SaveIntervals() overlap error = %v", err)
	}

	latest, found, err := store.LatestIntervalStart(ctx, id)
	if err != nil || !found {
		t.Fatalf("LatestIntervalStart() = %v, %v", found, err)
	}
	if !latest.Equal(base.Add(time.Hour)) {
		t.Errorf("LatestIntervalStart() = %s, want %s", latest, base.Add(time.Hour))
	}

	if err := store.MarkSynced(ctx, id, time.Now()); err != nil {
		t.Errorf("MarkSynced() error = %v", err)
	}
}
