package index

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/lexandro/blastindex-mcp/report"
)

// maxHeaderBytes bounds how much of a record-start line is read for its description.
const maxHeaderBytes = 4096

// Catalog provides metadata search over the records of one report using an
// in-memory Bleve index. Documents are keyed by record key.
type Catalog struct {
	mu    sync.RWMutex
	index bleve.Index
	idx   *Index
}

// catalogDocument is the document structure stored in Bleve.
type catalogDocument struct {
	Key           string `json:"key"`
	SearchType    string `json:"searchType"`
	HasAlignments bool   `json:"hasAlignments"`
	Description   string `json:"description"`
}

// SearchOptions configures a catalog search.
type SearchOptions struct {
	// Query is plain text (matches descriptions and key substrings, * and ?
	// act as wildcards on the key),
	// "quoted phrase" (description phrase) or /regex/ (whole key).
	// Empty matches every record.
	Query       string
	SearchType  string // exact search type filter, e.g. BLASTN
	AlignedOnly bool   // only records with alignments
	MaxResults  int
}

// CatalogHit is one matching record.
type CatalogHit struct {
	Entry       Entry
	Description string
}

// NewCatalog indexes the entries of idx. Descriptions are read from the
// record-start line of every record in the report at reportPath.
func NewCatalog(reportPath string, idx *Index, dialect report.Dialect) (*Catalog, error) {
	bleveIndex, err := bleve.NewMemOnly(buildCatalogMapping())
	if err != nil {
		return nil, fmt.Errorf("creating bleve index: %w", err)
	}

	descriptions, err := readDescriptions(reportPath, idx, report.Default(dialect))
	if err != nil {
		bleveIndex.Close()
		return nil, err
	}

	batch := bleveIndex.NewBatch()
	for i, e := range idx.entries {
		// Empty keys cannot be document IDs; shadowed duplicates are not searchable.
		if e.Key == "" || idx.byKey[e.Key] != i {
			continue
		}
		doc := catalogDocument{
			Key:           e.Key,
			SearchType:    e.SearchType,
			HasAlignments: e.HasAlignments,
			Description:   descriptions[i],
		}
		if err := batch.Index(e.Key, doc); err != nil {
			bleveIndex.Close()
			return nil, fmt.Errorf("indexing record %s: %w", e.Key, err)
		}
	}
	if err := bleveIndex.Batch(batch); err != nil {
		bleveIndex.Close()
		return nil, fmt.Errorf("indexing records: %w", err)
	}

	return &Catalog{index: bleveIndex, idx: idx}, nil
}

// buildCatalogMapping creates the Bleve index mapping for record metadata.
func buildCatalogMapping() *mapping.IndexMappingImpl {
	indexMapping := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()

	keyFieldMapping := bleve.NewKeywordFieldMapping()
	keyFieldMapping.Store = true
	keyFieldMapping.IncludeInAll = false
	docMapping.AddFieldMappingsAt("key", keyFieldMapping)

	typeFieldMapping := bleve.NewKeywordFieldMapping()
	typeFieldMapping.Store = false
	typeFieldMapping.IncludeInAll = false
	docMapping.AddFieldMappingsAt("searchType", typeFieldMapping)

	alignedFieldMapping := bleve.NewBooleanFieldMapping()
	alignedFieldMapping.Store = false
	alignedFieldMapping.IncludeInAll = false
	docMapping.AddFieldMappingsAt("hasAlignments", alignedFieldMapping)

	descFieldMapping := bleve.NewTextFieldMapping()
	descFieldMapping.Store = true
	descFieldMapping.IncludeInAll = true
	docMapping.AddFieldMappingsAt("description", descFieldMapping)

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

// readDescriptions returns the description of every entry, by position.
func readDescriptions(reportPath string, idx *Index, dialect report.Dialect) ([]string, error) {
	descriptions := make([]string, len(idx.entries))
	describer, ok := dialect.(report.Describer)
	if !ok || len(idx.entries) == 0 {
		return descriptions, nil
	}

	f, err := os.Open(reportPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReportUnreadable, err)
	}
	defer f.Close()

	buf := make([]byte, maxHeaderBytes)
	for i, e := range idx.entries {
		n, err := f.ReadAt(buf, e.Offset)
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("%w: reading record %q at %d: %w", ErrReportUnreadable, e.Key, e.Offset, err)
		}
		line := buf[:n]
		if nl := bytes.IndexByte(line, '\n'); nl >= 0 {
			line = line[:nl]
		}
		descriptions[i] = describer.Description(line)
	}
	return descriptions, nil
}

// Search runs a metadata query and returns hits in index order plus the total
// number of matching records.
func (c *Catalog) Search(options SearchOptions) ([]CatalogHit, int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if options.MaxResults <= 0 {
		options.MaxResults = 50
	}

	count, err := c.index.DocCount()
	if err != nil {
		return nil, 0, fmt.Errorf("counting documents: %w", err)
	}
	if count == 0 {
		return nil, 0, nil
	}

	searchRequest := bleve.NewSearchRequest(buildCatalogQuery(options))
	searchRequest.Size = int(count)
	searchRequest.Fields = []string{"description"}

	searchResults, err := c.index.Search(searchRequest)
	if err != nil {
		return nil, 0, fmt.Errorf("searching catalog: %w", err)
	}

	hits := make([]CatalogHit, 0, len(searchResults.Hits))
	for _, hit := range searchResults.Hits {
		entry, ok := c.idx.Lookup(hit.ID)
		if !ok {
			continue
		}
		description, _ := hit.Fields["description"].(string)
		hits = append(hits, CatalogHit{Entry: entry, Description: description})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Entry.ID < hits[j].Entry.ID })

	total := len(hits)
	if len(hits) > options.MaxResults {
		hits = hits[:options.MaxResults]
	}
	return hits, total, nil
}

// buildCatalogQuery turns search options into a Bleve query.
func buildCatalogQuery(options SearchOptions) query.Query {
	var conjuncts []query.Query

	if q := buildTextQuery(options.Query); q != nil {
		conjuncts = append(conjuncts, q)
	}
	if options.SearchType != "" {
		typeQuery := bleve.NewTermQuery(strings.ToUpper(options.SearchType))
		typeQuery.SetField("searchType")
		conjuncts = append(conjuncts, typeQuery)
	}
	if options.AlignedOnly {
		alignedQuery := bleve.NewBoolFieldQuery(true)
		alignedQuery.SetField("hasAlignments")
		conjuncts = append(conjuncts, alignedQuery)
	}

	switch len(conjuncts) {
	case 0:
		return bleve.NewMatchAllQuery()
	case 1:
		return conjuncts[0]
	default:
		return bleve.NewConjunctionQuery(conjuncts...)
	}
}

// buildTextQuery parses the query string. Returns nil for an empty query.
func buildTextQuery(queryString string) query.Query {
	queryString = strings.TrimSpace(queryString)
	if queryString == "" {
		return nil
	}

	// Regex query on the key: /pattern/
	if strings.HasPrefix(queryString, "/") && strings.HasSuffix(queryString, "/") && len(queryString) > 2 {
		regexQuery := bleve.NewRegexpQuery(queryString[1 : len(queryString)-1])
		regexQuery.SetField("key")
		return regexQuery
	}

	// Phrase query on the description: "exact phrase"
	if strings.HasPrefix(queryString, "\"") && strings.HasSuffix(queryString, "\"") && len(queryString) > 2 {
		phraseQuery := bleve.NewMatchPhraseQuery(queryString[1 : len(queryString)-1])
		phraseQuery.SetField("description")
		return phraseQuery
	}

	descQuery := bleve.NewMatchQuery(queryString)
	descQuery.SetField("description")
	keyQuery := bleve.NewWildcardQuery("*" + queryString + "*")
	keyQuery.SetField("key")
	return bleve.NewDisjunctionQuery(descQuery, keyQuery)
}

// DocumentCount returns the number of searchable records.
func (c *Catalog) DocumentCount() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	count, _ := c.index.DocCount()
	return count
}

// Close closes the Bleve index.
func (c *Catalog) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index.Close()
}
