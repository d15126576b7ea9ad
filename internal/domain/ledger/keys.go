package ledger

import (
	"sort"

	"github.com/jhoicas/bodega-ledger/internal/domain/entity"
)

// SortKeys devuelve las llaves sin duplicados en orden de adquisición de bloqueos
// (bodega, ubicación, producto ascendente). Toda operación que bloquea más de una llave
// lo hace en este orden para evitar esperas circulares.
func SortKeys(keys []entity.RecordKey) []entity.RecordKey {
	seen := make(map[entity.RecordKey]struct{}, len(keys))
	out := make([]entity.RecordKey, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}
