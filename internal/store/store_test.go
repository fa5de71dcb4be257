package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/openvdm/openvdm-web/internal/errtypes"
	"github.com/openvdm/openvdm-web/internal/store/database"
	"github.com/openvdm/openvdm-web/internal/store/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testBasePath string

func TestMain(m *testing.M) {
	var err error
	testBasePath, err = os.MkdirTemp("", "openvdm-store-test-*")
	if err != nil {
		fmt.Printf("Failed to create temp directory: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()

	os.RemoveAll(testBasePath)
	os.Exit(code)
}

// setupTestStore creates a new store backed by a fresh database file.
func setupTestStore(t *testing.T) *Store {
	dir := filepath.Join(testBasePath, t.Name())
	require.NoError(t, os.RemoveAll(dir))

	paths := map[string]string{
		"sqlite": filepath.Join(dir, "test.db"),
		"config": filepath.Join(dir, "openvdm-web.toml"),
		"env":    "",
	}

	store, err := Initialize(t.Context(), paths)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func newCST(name string) types.Transfer {
	return types.Transfer{
		Kind:          types.KindCollectionSystem,
		Name:          name,
		LongName:      name + " Long",
		TransferType:  types.TransferTypeLocalDirectory,
		SourceDir:     "/mnt/" + name,
		DestDir:       name,
		IncludeFilter: "*",
		Status:        types.StatusIdle,
		Enable:        true,
	}
}

func TestTransferCRUD(t *testing.T) {
	store := setupTestStore(t)

	t.Run("Basic CRUD Operations", func(t *testing.T) {
		cst := newCST("SCS")
		cst.BandwidthLimit = 512

		id, err := store.Database.CreateTransfer(nil, cst)
		require.NoError(t, err)
		assert.NotZero(t, id)

		got, err := store.Database.GetTransfer(id)
		require.NoError(t, err)
		assert.Equal(t, "SCS", got.Name)
		assert.Equal(t, types.KindCollectionSystem, got.Kind)
		assert.Equal(t, types.StatusIdle, got.Status)
		assert.Equal(t, 512, got.BandwidthLimit)
		assert.True(t, got.Enable)

		got.LongName = "Scientific Computing System"
		got.Status = types.StatusError
		require.NoError(t, store.Database.UpdateTransfer(nil, got))

		updated, err := store.Database.GetTransfer(id)
		require.NoError(t, err)
		assert.Equal(t, "Scientific Computing System", updated.LongName)
		assert.Equal(t, types.StatusIdle, updated.Status, "update leaves lifecycle columns alone")

		require.NoError(t, store.Database.DeleteTransfer(nil, id))
		_, err = store.Database.GetTransfer(id)
		assert.ErrorIs(t, err, database.ErrTransferNotFound)
	})

	t.Run("Duplicate Name", func(t *testing.T) {
		_, err := store.Database.CreateTransfer(nil, newCST("EM302"))
		require.NoError(t, err)

		_, err = store.Database.CreateTransfer(nil, newCST("EM302"))
		var conflict errtypes.IsConflict
		assert.ErrorAs(t, err, &conflict)

		cdt := newCST("EM302")
		cdt.Kind = types.KindCruiseData
		_, err = store.Database.CreateTransfer(nil, cdt)
		assert.NoError(t, err, "names are unique per kind")
	})

	t.Run("Excluded ID Lists", func(t *testing.T) {
		cdt := types.Transfer{
			Kind:                      types.KindCruiseData,
			Name:                      "Backup",
			LongName:                  "Backup Drive",
			TransferType:              types.TransferTypeLocalDirectory,
			DestDir:                   "/mnt/backup",
			ExcludedCollectionSystems: []int64{3, 7},
			ExcludedExtraDirectories:  []int64{1},
			Status:                    types.StatusDisabled,
		}
		id, err := store.Database.CreateTransfer(nil, cdt)
		require.NoError(t, err)

		got, err := store.Database.GetTransfer(id)
		require.NoError(t, err)
		assert.Equal(t, []int64{3, 7}, got.ExcludedCollectionSystems)
		assert.Equal(t, []int64{1}, got.ExcludedExtraDirectories)
	})

	t.Run("Concurrent Patches", func(t *testing.T) {
		id, err := store.Database.CreateTransfer(nil, newCST("Winch"))
		require.NoError(t, err)

		var wg sync.WaitGroup
		for i := 1; i <= 10; i++ {
			wg.Add(1)
			go func(pid int) {
				defer wg.Done()
				running := types.StatusRunning
				assert.NoError(t, store.Database.PatchTransfer(nil, id, types.TransferPatch{Status: &running, PID: &pid}))
			}(i)
		}
		wg.Wait()

		got, err := store.Database.GetTransfer(id)
		require.NoError(t, err)
		assert.Equal(t, types.StatusRunning, got.Status)
		assert.NotZero(t, got.PID)
	})
}

func TestPatchTransfer(t *testing.T) {
	store := setupTestStore(t)

	id, err := store.Database.CreateTransfer(nil, newCST("CTD"))
	require.NoError(t, err)

	disabled := types.StatusDisabled
	enable := false
	require.NoError(t, store.Database.PatchTransfer(nil, id, types.TransferPatch{Status: &disabled, Enable: &enable}))

	got, err := store.Database.GetTransfer(id)
	require.NoError(t, err)
	assert.Equal(t, types.StatusDisabled, got.Status)
	assert.False(t, got.Enable)
	assert.Equal(t, "CTD", got.Name)

	err = store.Database.PatchTransfer(nil, 9999, types.TransferPatch{Status: &disabled})
	assert.ErrorIs(t, err, database.ErrTransferNotFound)

	assert.NoError(t, store.Database.PatchTransfer(nil, 9999, types.TransferPatch{}), "empty patch is a no-op")
}

func TestGetAllTransfersFilter(t *testing.T) {
	store := setupTestStore(t)

	idle, err := store.Database.CreateTransfer(nil, newCST("Gravimeter"))
	require.NoError(t, err)

	off := newCST("Knudsen")
	off.Enable = false
	off.Status = types.StatusDisabled
	disabled, err := store.Database.CreateTransfer(nil, off)
	require.NoError(t, err)

	all, err := store.Database.GetAllTransfers(types.TransferFilter{Kind: types.KindCollectionSystem})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	enabled := true
	onlyEnabled, err := store.Database.GetAllTransfers(types.TransferFilter{Kind: types.KindCollectionSystem, Enabled: &enabled})
	require.NoError(t, err)
	require.Len(t, onlyEnabled, 1)
	assert.Equal(t, idle, onlyEnabled[0].ID)

	byStatus, err := store.Database.GetAllTransfers(types.TransferFilter{Statuses: []types.Status{types.StatusDisabled}})
	require.NoError(t, err)
	ids := make([]int64, 0, len(byStatus))
	for _, tr := range byStatus {
		ids = append(ids, tr.ID)
	}
	assert.Contains(t, ids, disabled)
	assert.NotContains(t, ids, idle)

	none, err := store.Database.GetAllTransfers(types.TransferFilter{IDs: []int64{}})
	require.NoError(t, err)
	assert.Empty(t, none)

	byIDs, err := store.Database.GetAllTransfers(types.TransferFilter{IDs: []int64{disabled, 4242}})
	require.NoError(t, err)
	require.Len(t, byIDs, 1)
	assert.Equal(t, "Knudsen", byIDs[0].Name)
}

func TestRequiredRecordsCannotBeDeleted(t *testing.T) {
	store := setupTestStore(t)

	ssdw, err := store.Database.GetTransferByName(types.KindCruiseData, "SSDW")
	require.NoError(t, err)
	assert.True(t, ssdw.Required)

	var conflict errtypes.IsConflict
	err = store.Database.DeleteTransfer(nil, ssdw.ID)
	assert.ErrorAs(t, err, &conflict)

	dirs, err := store.Database.GetAllExtraDirectories()
	require.NoError(t, err)
	require.NotEmpty(t, dirs)
	err = store.Database.DeleteExtraDirectory(nil, dirs[0].ID)
	assert.ErrorAs(t, err, &conflict)

	s2s, err := store.Database.GetAllShipToShoreTransfers()
	require.NoError(t, err)
	require.NotEmpty(t, s2s)
	err = store.Database.DeleteShipToShoreTransfer(nil, s2s[0].ID)
	assert.ErrorAs(t, err, &conflict)
}

func TestRecordCRUD(t *testing.T) {
	store := setupTestStore(t)

	t.Run("Extra Directories", func(t *testing.T) {
		id, err := store.Database.CreateExtraDirectory(nil, types.ExtraDirectory{
			Name: "Science_Party", LongName: "Science Party", DestDir: "Science", Enable: true,
		})
		require.NoError(t, err)

		require.NoError(t, store.Database.SetExtraDirectoryEnabled(nil, id, false))
		got, err := store.Database.GetExtraDirectory(id)
		require.NoError(t, err)
		assert.False(t, got.Enable)

		got.DestDir = "Science_Party"
		require.NoError(t, store.Database.UpdateExtraDirectory(nil, got))

		require.NoError(t, store.Database.DeleteExtraDirectory(nil, id))
		_, err = store.Database.GetExtraDirectory(id)
		assert.ErrorIs(t, err, database.ErrExtraDirectoryNotFound)
	})

	t.Run("Ship To Shore", func(t *testing.T) {
		id, err := store.Database.CreateShipToShoreTransfer(nil, types.ShipToShoreTransfer{
			Name: "Nav", LongName: "Navigation", Priority: 2, CollectionSystem: 1, IncludeFilter: "*.gga",
		})
		require.NoError(t, err)

		got, err := store.Database.GetShipToShoreTransfer(id)
		require.NoError(t, err)
		assert.Equal(t, 2, got.Priority)
		assert.Equal(t, "*.gga", got.IncludeFilter)

		require.NoError(t, store.Database.DeleteShipToShoreTransfer(nil, id))
	})

	t.Run("Links", func(t *testing.T) {
		id, err := store.Database.CreateLink(nil, types.Link{Name: "Dashboard", URL: "http://{hostIP}/dashboard", Enable: true})
		require.NoError(t, err)

		got, err := store.Database.GetLink(id)
		require.NoError(t, err)
		assert.Equal(t, "http://{hostIP}/dashboard", got.URL)

		got.Private = true
		require.NoError(t, store.Database.UpdateLink(nil, got))

		links, err := store.Database.GetAllLinks()
		require.NoError(t, err)
		require.Len(t, links, 1)
		assert.True(t, links[0].Private)

		require.NoError(t, store.Database.DeleteLink(nil, id))
		assert.ErrorIs(t, store.Database.DeleteLink(nil, id), database.ErrLinkNotFound)
	})
}

func TestCoreVars(t *testing.T) {
	store := setupTestStore(t)

	w, err := store.Database.GetWarehouse()
	require.NoError(t, err)
	assert.Equal(t, types.SystemOff, w.SystemStatus)
	assert.Equal(t, types.WarehouseOK, w.ShipboardDataWarehouseStatus)

	require.NoError(t, store.Database.SetCoreVar(nil, types.VarCruiseID, "FKt240101"))
	require.NoError(t, store.Database.SetCoreVar(nil, types.VarShipToShoreBandwidthLimit, "128"))

	v, err := store.Database.GetCoreVar(types.VarCruiseID)
	require.NoError(t, err)
	assert.Equal(t, "FKt240101", v)

	w, err = store.Database.GetWarehouse()
	require.NoError(t, err)
	assert.Equal(t, "FKt240101", w.CruiseID)
	assert.Equal(t, 128, w.ShipToShoreBandwidthLimit)

	_, err = store.Database.GetCoreVar("noSuchVar")
	assert.ErrorIs(t, err, database.ErrCoreVarNotFound)
}

func TestReloadConfig(t *testing.T) {
	store := setupTestStore(t)
	assert.Equal(t, "unix", store.GetAppConfig().Worker.Network)

	content := "[worker]\nnetwork = \"tcp\"\naddress = \"127.0.0.1:4730\"\n"
	require.NoError(t, os.WriteFile(store.configPath, []byte(content), 0644))

	require.NoError(t, store.ReloadConfig())
	assert.Equal(t, "tcp", store.GetAppConfig().Worker.Network)
	assert.Equal(t, "127.0.0.1:4730", store.GetAppConfig().Worker.Address)
}
