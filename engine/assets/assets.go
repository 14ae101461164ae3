package assets

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/prism/engine/assets/loaders"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

var (
	ErrClosed        = errors.New("asset manager already closed")
	ErrAssetNotFound = errors.New("asset not found")
	ErrNoLoader      = errors.New("no loader registered")
)

type AssetInfo struct {
	Path       string
	Type       metadata.ResourceType
	LastLoaded time.Time
}

// ChangeHandler is called from the watcher goroutine for every change to an
// indexed asset.
type ChangeHandler func(info AssetInfo, op fsnotify.Op)

// AssetManager indexes asset files on disk and reports changes to them.
type AssetManager struct {
	assets   map[string]AssetInfo
	loaders  map[metadata.ResourceType]Loader
	handlers []ChangeHandler

	mutex sync.RWMutex

	fsnotify *fsnotify.Watcher
	isClosed bool
}

func NewAssetManager() (*AssetManager, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "create file watcher")
	}

	am := &AssetManager{
		assets:   make(map[string]AssetInfo),
		loaders:  make(map[metadata.ResourceType]Loader),
		fsnotify: fsWatch,
	}
	am.registerLoader(metadata.ResourceTypeShader, &loaders.ShaderLoader{})
	am.registerLoader(metadata.ResourceTypeBinary, &loaders.BinaryLoader{})
	am.registerLoader(metadata.ResourceTypeConfig, &loaders.BinaryLoader{})
	return am, nil
}

// Initialize indexes and watches every directory under assetsDir.
func (am *AssetManager) Initialize(assetsDir string) error {
	if err := am.addRecursive(assetsDir); err != nil {
		return errors.Wrapf(err, "watch %s", assetsDir)
	}
	core.LogDebug("Watching assets under '%s'.", assetsDir)
	return nil
}

// WatchFile indexes a single file and watches its directory without
// descending into subdirectories.
func (am *AssetManager) WatchFile(path string) error {
	if am.isClosed {
		return ErrClosed
	}
	path = filepath.Clean(path)
	if err := am.fsnotify.Add(filepath.Dir(path)); err != nil {
		return errors.Wrapf(err, "watch %s", path)
	}
	if _, err := os.Stat(path); err == nil {
		am.handleFileEvent(path)
	}
	return nil
}

// OnChange registers h for change notifications.
func (am *AssetManager) OnChange(h ChangeHandler) {
	am.mutex.Lock()
	defer am.mutex.Unlock()
	am.handlers = append(am.handlers, h)
}

// AddRecursive starts watching the named directory and all sub-directories.
func (am *AssetManager) addRecursive(name string) error {
	if am.isClosed {
		return ErrClosed
	}
	return am.watchRecursive(name, false)
}

// RemoveRecursive stops watching the named directory and all sub-directories.
func (am *AssetManager) RemoveRecursive(name string) error {
	return am.watchRecursive(name, true)
}

// Register loaders for each asset type
func (am *AssetManager) registerLoader(assetType metadata.ResourceType, loader Loader) {
	am.loaders[assetType] = loader
}

// Lookup returns the index entry for path.
func (am *AssetManager) Lookup(path string) (AssetInfo, bool) {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	info, ok := am.assets[filepath.Clean(path)]
	return info, ok
}

// LoadAsset loads an indexed asset with the loader registered for its type.
func (am *AssetManager) LoadAsset(path string, params interface{}) (*metadata.Resource, error) {
	path = filepath.Clean(path)

	am.mutex.Lock()
	asset, exists := am.assets[path]
	if !exists {
		am.mutex.Unlock()
		return nil, errors.Wrap(ErrAssetNotFound, path)
	}
	asset.LastLoaded = time.Now()
	am.assets[path] = asset
	loader, loaderExists := am.loaders[asset.Type]
	am.mutex.Unlock()

	if !loaderExists {
		return nil, errors.Wrapf(ErrNoLoader, "%s (%s)", path, asset.Type)
	}
	return loader.Load(path, asset.Type, params)
}

func (am *AssetManager) UnloadAsset(asset *metadata.Resource) error {
	am.mutex.RLock()
	info, ok := am.assets[filepath.Clean(asset.FullPath)]
	am.mutex.RUnlock()
	if !ok {
		return nil
	}
	if loader, ok := am.loaders[info.Type]; ok {
		return loader.Unload(asset)
	}
	return nil
}

// Run dispatches file events until ctx is canceled, then closes the watcher.
func (am *AssetManager) Run(ctx context.Context) error {
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return nil
			}
			am.dispatch(e)

		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return nil
			}
			core.LogError("asset watcher: %s", err)

		case <-ctx.Done():
			return am.Close()
		}
	}
}

func (am *AssetManager) Close() error {
	am.mutex.Lock()
	defer am.mutex.Unlock()
	if am.isClosed {
		return nil
	}
	am.isClosed = true
	return am.fsnotify.Close()
}

func (am *AssetManager) dispatch(e fsnotify.Event) {
	name := filepath.Clean(e.Name)
	if s, err := os.Stat(name); err == nil && s.IsDir() {
		if e.Op&fsnotify.Create != 0 {
			if err := am.watchRecursive(name, false); err != nil {
				core.LogWarn("asset watcher: cannot watch %s: %s", name, err)
			}
		}
		return
	}

	if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
		am.handleFileEvent(name)
	}

	am.mutex.RLock()
	info, indexed := am.assets[name]
	handlers := append([]ChangeHandler(nil), am.handlers...)
	am.mutex.RUnlock()

	if e.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		am.removeAsset(name)
	}
	if !indexed {
		return
	}
	for _, h := range handlers {
		h(info, e.Op)
	}
}

// watchRecursive adds all directories under the given one to the watch list
// and indexes the files found in them.
func (am *AssetManager) watchRecursive(path string, unWatch bool) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			if unWatch {
				return am.fsnotify.Remove(walkPath)
			}
			return am.fsnotify.Add(walkPath)
		}
		if unWatch {
			am.removeAsset(filepath.Clean(walkPath))
		} else {
			am.handleFileEvent(filepath.Clean(walkPath))
		}
		return nil
	})
}

// Handle the creation or modification of a file
func (am *AssetManager) handleFileEvent(path string) {
	assetType := determineAssetType(path)
	if assetType == metadata.ResourceTypeNone {
		return
	}

	am.mutex.Lock()
	defer am.mutex.Unlock()
	am.assets[path] = AssetInfo{
		Path: path,
		Type: assetType,
	}
}

// Remove the asset from the index if it was deleted
func (am *AssetManager) removeAsset(path string) {
	am.mutex.Lock()
	defer am.mutex.Unlock()

	delete(am.assets, path)
}

func determineAssetType(path string) metadata.ResourceType {
	switch filepath.Ext(path) {
	case ".spv":
		return metadata.ResourceTypeShader
	case ".vert", ".frag", ".glsl":
		return metadata.ResourceTypeShaderSource
	case ".toml":
		return metadata.ResourceTypeConfig
	case ".bin":
		return metadata.ResourceTypeBinary
	default:
		return metadata.ResourceTypeNone
	}
}
