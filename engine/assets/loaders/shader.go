package loaders

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

// SpirvMagic is the first word of every SPIR-V module.
const SpirvMagic uint32 = 0x07230203

var ErrInvalidSpirv = errors.New("invalid SPIR-V module")

// ShaderLoader reads a compiled shader stage. Data is the module as []uint32
// and DataSize its length in bytes.
type ShaderLoader struct{}

func (sl *ShaderLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read shader %s", path)
	}
	if len(data) < 4 || len(data)%4 != 0 {
		return nil, errors.Wrapf(ErrInvalidSpirv, "%s is %d bytes", path, len(data))
	}
	code := bytesToBytecode(data)
	if code[0] != SpirvMagic {
		return nil, errors.Wrapf(ErrInvalidSpirv, "%s has magic %#08x", path, code[0])
	}
	return &metadata.Resource{
		Name:     filepath.Base(path),
		FullPath: path,
		DataSize: uint64(len(data)),
		Data:     code,
	}, nil
}

func (sl *ShaderLoader) Unload(r *metadata.Resource) error {
	r.Data = nil
	r.DataSize = 0
	return nil
}
