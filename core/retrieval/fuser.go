package retrieval

import (
	"hash/fnv"

	"github.com/fusekb/fusekb/model"
)

// Fuse merges result lists into one, dropping results whose content was
// already seen. The first occurrence wins, so earlier lists take priority
// and relative order within each list is preserved.
func Fuse(lists ...[]*model.RetrievalResult) []*model.RetrievalResult {
	seen := map[uint64]struct{}{}
	fused := []*model.RetrievalResult{}

	for _, list := range lists {
		for _, result := range list {
			hash := contentHash(result.Content)
			if _, ok := seen[hash]; ok {
				continue
			}
			seen[hash] = struct{}{}
			fused = append(fused, result)
		}
	}

	return fused
}

func contentHash(content string) uint64 {
	hash := fnv.New64a()
	hash.Write([]byte(content))
	return hash.Sum64()
}
