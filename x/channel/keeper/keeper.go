package keeper

import (
	"context"
	"fmt"
	"sync"

	"cosmossdk.io/log"
	storetypes "cosmossdk.io/store/types"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/zkchannel/zkchannel/x/channel/types"
	"github.com/zkchannel/zkchannel/x/channel/zkproof"
)

// Keeper of the channel store. It holds every account on the ledger and
// executes the system program, the channel program and any registered
// callback programs against them.
type Keeper struct {
	storeKey storetypes.StoreKey
	verifier zkproof.Verifier

	programsMu sync.RWMutex
	programs   map[types.Address]types.Program

	metrics *ChannelMetrics
}

type kvStoreProvider interface {
	KVStore(key storetypes.StoreKey) storetypes.KVStore
}

// NewKeeper creates a new channel Keeper instance
func NewKeeper(key storetypes.StoreKey, verifier zkproof.Verifier) *Keeper {
	return &Keeper{
		storeKey: key,
		verifier: verifier,
		programs: make(map[types.Address]types.Program),
		metrics:  NewChannelMetrics(),
	}
}

// getStore returns the KVStore for the channel module
func (k *Keeper) getStore(ctx context.Context) storetypes.KVStore {
	if provider, ok := ctx.(kvStoreProvider); ok {
		return provider.KVStore(k.storeKey)
	}

	unwrapped := sdk.UnwrapSDKContext(ctx)
	return unwrapped.KVStore(k.storeKey)
}

// Logger returns a module-specific logger.
func (k *Keeper) Logger(ctx sdk.Context) log.Logger {
	return ctx.Logger().With("module", "x/"+types.ModuleName)
}

// Verifier returns the proof verifier the keeper was built with.
func (k *Keeper) Verifier() zkproof.Verifier {
	return k.verifier
}

// RegisterProgram makes p invocable at id. The system and channel program
// ids are reserved.
func (k *Keeper) RegisterProgram(id types.Address, p types.Program) error {
	if id == types.SystemProgramID || id == types.ProgramID {
		return fmt.Errorf("program id %s is reserved", id)
	}
	k.programsMu.Lock()
	defer k.programsMu.Unlock()
	if _, ok := k.programs[id]; ok {
		return fmt.Errorf("program %s already registered", id)
	}
	k.programs[id] = p
	return nil
}

func (k *Keeper) program(id types.Address) (types.Program, bool) {
	k.programsMu.RLock()
	defer k.programsMu.RUnlock()
	p, ok := k.programs[id]
	return p, ok
}

// IsProgram reports whether id can be the target of an instruction.
func (k *Keeper) IsProgram(id types.Address) bool {
	if id == types.SystemProgramID || id == types.ProgramID {
		return true
	}
	_, ok := k.program(id)
	return ok
}
