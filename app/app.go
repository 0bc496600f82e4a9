// Package app runs the single node ledger that hosts the channel program:
// it orders transactions, executes them atomically against the channel
// keeper and commits a block at a fixed interval.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/log"
	"cosmossdk.io/store"
	"cosmossdk.io/store/metrics"
	storetypes "cosmossdk.io/store/types"
	cmtproto "github.com/cometbft/cometbft/proto/tendermint/types"
	dbm "github.com/cosmos/cosmos-db"
	sdk "github.com/cosmos/cosmos-sdk/types"
	sdkerrors "github.com/cosmos/cosmos-sdk/types/errors"

	"github.com/zkchannel/zkchannel/x/channel/keeper"
	"github.com/zkchannel/zkchannel/x/channel/types"
	"github.com/zkchannel/zkchannel/x/channel/zkproof"
)

// ChainID names the ledger in block headers.
const ChainID = "zkchannel-devnet"

// TxResult is the recorded outcome of a processed transaction.
type TxResult struct {
	ID        string           `json:"id"`
	Height    uint64           `json:"height"`
	Success   bool             `json:"success"`
	Codespace string           `json:"codespace,omitempty"`
	Code      uint32           `json:"code,omitempty"`
	Log       string           `json:"log,omitempty"`
	GasUsed   uint64           `json:"gas_used"`
	Events    sdk.StringEvents `json:"events,omitempty"`
}

// Ledger serializes transactions against the channel keeper. All state
// access goes through mu.
type Ledger struct {
	mu sync.Mutex

	cfg     Config
	logger  log.Logger
	db      dbm.DB
	cms     storetypes.CommitMultiStore
	key     *storetypes.KVStoreKey
	keeper  *keeper.Keeper
	metrics *LedgerMetrics

	height    uint64 // block currently being built
	blockTime time.Time
	latest    types.Hash
	hashes    *blockhashQueue

	txs         map[string]*TxResult
	txsByHeight map[uint64][]string

	listeners []func(Block)
}

// Block summarizes a committed block.
type Block struct {
	Height    uint64     `json:"height"`
	Blockhash types.Hash `json:"blockhash"`
	Time      time.Time  `json:"time"`
	Txs       []TxResult `json:"txs,omitempty"`
}

// SubscribeBlocks registers fn to run after every commit. fn runs with the
// ledger locked; it must not block or call back into the ledger.
func (l *Ledger) SubscribeBlocks(fn func(Block)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listeners = append(l.listeners, fn)
}

// NewLedger opens the configured database and loads the latest committed
// state. A fresh database must be initialised with InitChain.
func NewLedger(cfg Config, verifier zkproof.Verifier, logger log.Logger) (*Ledger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	db, err := cfg.openDB()
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger db: %w", err)
	}

	key := storetypes.NewKVStoreKey(types.StoreKey)
	cms := store.NewCommitMultiStore(db, logger, metrics.NewNoOpMetrics())
	cms.MountStoreWithDB(key, storetypes.StoreTypeIAVL, nil)
	if err := cms.LoadLatestVersion(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to load ledger state: %w", err)
	}

	l := &Ledger{
		cfg:         cfg,
		logger:      logger.With("module", "ledger"),
		db:          db,
		cms:         cms,
		key:         key,
		keeper:      keeper.NewKeeper(key, verifier),
		metrics:     NewLedgerMetrics(),
		blockTime:   time.Now().UTC(),
		hashes:      newBlockhashQueue(cfg.BlockhashValidity),
		txs:         make(map[string]*TxResult),
		txsByHeight: make(map[uint64][]string),
	}

	last := cms.LastCommitID()
	l.height = uint64(last.Version) + 1
	if last.Version > 0 {
		l.latest = blockhashFor(last.Hash, uint64(last.Version))
		l.hashes.push(l.latest, uint64(last.Version))
		l.logger.Info("ledger loaded", "height", last.Version, "blockhash", l.latest.String())
	}
	return l, nil
}

// Keeper returns the channel keeper. Callers must not use it concurrently
// with the ledger; it is exposed for program registration at startup.
func (l *Ledger) Keeper() *keeper.Keeper { return l.keeper }

// Initialized reports whether genesis has been committed.
func (l *Ledger) Initialized() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cms.LastCommitID().Version > 0
}

// InitChain writes genesis state and commits the first block.
func (l *Ledger) InitChain(gs types.GenesisState) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cms.LastCommitID().Version > 0 {
		return fmt.Errorf("ledger already initialized at height %d", l.cms.LastCommitID().Version)
	}
	if err := l.keeper.InitGenesis(l.context(), gs); err != nil {
		return err
	}
	l.commit()
	l.logger.Info("genesis committed", "accounts", len(gs.Accounts), "blockhash", l.latest.String())
	return nil
}

// context returns a context for the block being built. Callers hold mu.
func (l *Ledger) context() sdk.Context {
	header := cmtproto.Header{ChainID: ChainID, Height: int64(l.height), Time: l.blockTime}
	return sdk.NewContext(l.cms, header, false, l.logger)
}

// commit ends the current block. Callers hold mu.
func (l *Ledger) commit() {
	id := l.cms.Commit()
	committed := uint64(id.Version)
	l.latest = blockhashFor(id.Hash, committed)
	l.hashes.push(l.latest, committed)
	l.notify(committed)

	// Transactions older than the blockhash window can no longer be replayed.
	if committed > l.cfg.BlockhashValidity+1 {
		expired := committed - l.cfg.BlockhashValidity - 1
		for _, id := range l.txsByHeight[expired] {
			delete(l.txs, id)
		}
		delete(l.txsByHeight, expired)
	}

	l.height = committed + 1
	l.blockTime = time.Now().UTC()
	l.metrics.BlockHeight.Set(float64(committed))
	l.metrics.RecentHashes.Set(float64(len(l.hashes.order)))
}

// notify hands the committed block to listeners. Callers hold mu.
func (l *Ledger) notify(height uint64) {
	if len(l.listeners) == 0 {
		return
	}
	block := Block{Height: height, Blockhash: l.latest, Time: l.blockTime}
	for _, id := range l.txsByHeight[height] {
		block.Txs = append(block.Txs, *l.txs[id])
	}
	for _, fn := range l.listeners {
		fn(block)
	}
}

// AdvanceBlock commits the current block and starts the next one.
func (l *Ledger) AdvanceBlock() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.commit()
}

// Run produces blocks at the configured interval until ctx is done.
func (l *Ledger) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.cfg.BlockInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			l.AdvanceBlock()
		}
	}
}

// Height returns the height of the block being built, at which submitted
// transactions execute.
func (l *Ledger) Height() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.height
}

// LastCommitTime returns when the latest block was committed.
func (l *Ledger) LastCommitTime() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.blockTime
}

// Ping reads the committed store, failing if the database is unusable.
func (l *Ledger) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cms.LastCommitID().Version == 0 {
		return fmt.Errorf("ledger not initialized")
	}
	_, err := l.db.Has([]byte("s/latest"))
	return err
}

// LatestBlockhash returns the newest blockhash and the last height at which
// it is accepted.
func (l *Ledger) LatestBlockhash() (types.Hash, uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	last, _ := l.hashes.lastValidHeight(l.latest)
	return l.latest, last
}

// SubmitTransaction verifies and executes tx. Admission failures are
// returned without a result. Execution failures are recorded and returned
// with the result; no state change of a failed transaction persists.
func (l *Ledger) SubmitTransaction(tx *types.Transaction) (*TxResult, error) {
	if len(tx.Message.Instructions) == 0 {
		return nil, ErrEmptyTransaction
	}
	if bz, err := types.EncodeTransaction(tx); err != nil {
		return nil, errorsmod.Wrap(sdkerrors.ErrTxDecode, err.Error())
	} else if len(bz) > MaxTxBytes {
		return nil, ErrTxTooLarge.Wrapf("%d bytes exceeds %d", len(bz), MaxTxBytes)
	}
	signers, err := tx.VerifySignatures()
	if err != nil {
		if errorsmod.IsOf(err, types.ErrMissingSignature) {
			return nil, err
		}
		return nil, ErrInvalidSignature.Wrap(err.Error())
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	id := tx.ID()
	if _, seen := l.txs[id]; seen {
		return nil, ErrDuplicateTransaction.Wrapf("%s", id)
	}
	lastValid, ok := l.hashes.lastValidHeight(tx.Message.RecentBlockhash)
	if !ok || lastValid < l.height {
		return nil, ErrBlockhashExpired.Wrapf("%s", tx.Message.RecentBlockhash)
	}

	start := time.Now()
	res, execErr := l.runTx(tx, signers)
	res.ID = id
	res.Height = l.height
	l.txs[id] = res
	l.txsByHeight[l.height] = append(l.txsByHeight[l.height], id)

	l.metrics.TxLatency.Observe(time.Since(start).Seconds())
	l.metrics.TxGasUsed.Observe(float64(res.GasUsed))
	if execErr != nil {
		l.metrics.Transactions.WithLabelValues("failed").Inc()
		l.logger.Debug("transaction failed", "id", id, "error", execErr)
		return res, execErr
	}
	l.metrics.Transactions.WithLabelValues("success").Inc()
	l.logger.Debug("transaction executed", "id", id, "gas_used", res.GasUsed)
	return res, nil
}

// runTx executes every instruction of tx on a cached branch that is written
// only when all of them succeed. Callers hold mu.
func (l *Ledger) runTx(tx *types.Transaction, signers map[types.Address]bool) (res *TxResult, err error) {
	res = &TxResult{}
	meter := storetypes.NewGasMeter(l.cfg.MaxTxGas)
	ctx := l.context().WithGasMeter(meter)
	cacheCtx, write := ctx.CacheContext()

	defer func() {
		if r := recover(); r != nil {
			switch rType := r.(type) {
			case storetypes.ErrorOutOfGas:
				err = errorsmod.Wrapf(sdkerrors.ErrOutOfGas, "out of gas in location: %v; gas limit: %d", rType.Descriptor, meter.Limit())
			case storetypes.ErrorGasOverflow:
				err = errorsmod.Wrapf(sdkerrors.ErrOutOfGas, "gas overflow in location: %v", rType.Descriptor)
			default:
				err = errorsmod.Wrapf(sdkerrors.ErrPanic, "recovered: %v", r)
			}
		}
		res.GasUsed = meter.GasConsumedToLimit()
		if err != nil {
			res.Codespace, res.Code, res.Log = errorsmod.ABCIInfo(err, false)
		}
	}()

	for i, ix := range tx.Message.Instructions {
		if err := l.keeper.ProcessInstruction(cacheCtx, ix, signers); err != nil {
			return res, errorsmod.Wrapf(err, "instruction %d", i)
		}
	}
	res.Events = sdk.StringifyEvents(cacheCtx.EventManager().ABCIEvents())
	write()
	res.Success = true
	return res, nil
}

// TxStatus returns the result of a recently processed transaction.
func (l *Ledger) TxStatus(id string) (*TxResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	res, ok := l.txs[id]
	if !ok {
		return nil, ErrTxNotFound.Wrapf("%s", id)
	}
	out := *res
	return &out, nil
}

// Airdrop mints lamports to addr on the devnet.
func (l *Ledger) Airdrop(addr types.Address, lamports uint64) error {
	if l.cfg.MaxAirdrop == 0 {
		return ErrAirdropDisabled
	}
	if lamports == 0 || lamports > l.cfg.MaxAirdrop {
		return ErrAirdropDisabled.Wrapf("amount must be in [1, %d]", l.cfg.MaxAirdrop)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.keeper.Mint(l.context(), addr, lamports); err != nil {
		return err
	}
	l.metrics.Airdrops.Inc()
	l.logger.Info("airdrop", "address", addr.String(), "lamports", lamports)
	return nil
}

// Query runs fn against the current state under the ledger lock. fn must
// only read.
func (l *Ledger) Query(fn func(ctx sdk.Context, k *keeper.Keeper) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	ctx, _ := l.context().CacheContext()
	return fn(ctx, l.keeper)
}

// GetAccount returns the account at addr; missing accounts are empty.
func (l *Ledger) GetAccount(addr types.Address) (*types.Account, error) {
	var acct *types.Account
	err := l.Query(func(ctx sdk.Context, k *keeper.Keeper) (err error) {
		acct, _, err = k.GetAccount(ctx, addr)
		return err
	})
	return acct, err
}

// PendingExecutions lists executions that can still settle.
func (l *Ledger) PendingExecutions(limit int) ([]keeper.PendingExecution, error) {
	var out []keeper.PendingExecution
	err := l.Query(func(ctx sdk.Context, k *keeper.Keeper) (err error) {
		out, err = k.PendingExecutions(ctx, uint64(ctx.BlockHeight()), limit)
		return err
	})
	return out, err
}

// PendingExecutionCount counts executions that can still settle.
func (l *Ledger) PendingExecutionCount() (int, error) {
	pending, err := l.PendingExecutions(0)
	return len(pending), err
}

// GetExecution returns the state of one execution account.
func (l *Ledger) GetExecution(addr types.Address) (*keeper.ExecutionView, error) {
	var view *keeper.ExecutionView
	err := l.Query(func(ctx sdk.Context, k *keeper.Keeper) (err error) {
		view, err = k.GetExecution(ctx, addr)
		return err
	})
	return view, err
}

// ExportGenesis exports the current state.
func (l *Ledger) ExportGenesis() (*types.GenesisState, error) {
	var gs *types.GenesisState
	err := l.Query(func(ctx sdk.Context, k *keeper.Keeper) (err error) {
		gs, err = k.ExportGenesis(ctx)
		return err
	})
	return gs, err
}

// Close releases the database.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.db.Close()
}
