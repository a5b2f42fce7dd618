package dirscan

import (
	"context"
	"errors"

	"multiscan/pkg/metrics"
	"multiscan/pkg/types"
	"multiscan/pkg/utils/logger"
	"multiscan/pkg/utils/shared"

	"golang.org/x/sync/errgroup"
)

// DictionaryScanner 对单个基地址并发探测字典中的路径
// 每次 Scan 使用独立的worker池，返回前池已排空
type DictionaryScanner struct {
	fetcher *Fetcher
	listing *DirectoryListingAnalyzer
	workers int
}

// NewDictionaryScanner workers <= 0 时使用默认并发数
func NewDictionaryScanner(fetcher *Fetcher, listing *DirectoryListingAnalyzer, workers int) *DictionaryScanner {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &DictionaryScanner{fetcher: fetcher, listing: listing, workers: workers}
}

type scanItem struct {
	url    string
	record types.FindingRecord
}

// Scan 返回本批次 URL→记录；worker 只写本地通道，不触碰共享结果
func (s *DictionaryScanner) Scan(ctx context.Context, base string, words []string, source types.Source) map[string]types.FindingRecord {
	results := make(map[string]types.FindingRecord, len(words))
	if len(words) == 0 {
		logger.Warnf("字典为空，跳过 %s 扫描: %s", source, base)
		return results
	}

	logger.Infof("开始字典扫描 [%s]: %s (字典大小: %d)", source, base, len(words))

	items := make(chan scanItem, len(words))
	var g errgroup.Group
	g.SetLimit(s.workers)

	for _, word := range words {
		target := shared.JoinPath(base, word)
		g.Go(func() error {
			items <- s.probe(ctx, target, word, source)
			return nil
		})
	}
	_ = g.Wait()
	close(items)

	for item := range items {
		results[item.url] = item.record
	}
	logger.Debugf("字典扫描完成 [%s]: %s, 记录 %d 条", source, base, len(results))
	return results
}

// probe 单个路径探测，异常被转换为 SCANNER_TASK_ERROR 记录
func (s *DictionaryScanner) probe(ctx context.Context, target, word string, source types.Source) (item scanItem) {
	item.url = target
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("字典项 %s 扫描异常 [%s]: %v", word, source, r)
			item.record = types.FindingRecord{
				Status: types.StatusScannerTaskError,
				Note:   TaskErrorNote(word, r),
				Source: source,
			}
		}
	}()

	resp, err := s.fetcher.Fetch(ctx, target)
	switch {
	case errors.Is(err, ErrExcluded):
		item.record = types.FindingRecord{
			Status: types.StatusExcluded,
			Note:   NoteExcluded,
			Source: source,
		}
		return item
	case err != nil:
		item.record = types.FindingRecord{
			Status: types.StatusNoResponse,
			Note:   NoteNoResponse,
			Source: source,
		}
		return item
	}

	listing := false
	if source.IsPage() {
		listing = s.listing.IsListing(resp)
	}
	item.record = types.FindingRecord{
		Status:           types.HTTPStatus(resp.StatusCode),
		ContentLength:    resp.ContentLength,
		DirectoryListing: listing,
		Note:             ScanNote(source, resp.StatusCode, listing),
		Source:           source,
	}
	metrics.ObserveFinding(string(source), listing)
	if resp.StatusCode == 200 || resp.StatusCode == 403 {
		logger.Infof("[%d] %s (%s)", resp.StatusCode, target, source)
	}
	return item
}
