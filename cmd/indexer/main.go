// Package main 离线文档索引工具入口（indexer）
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"ai-chatbot-api/internal/config"
	"ai-chatbot-api/internal/domain/entity"
	"ai-chatbot-api/internal/wire"
	"ai-chatbot-api/pkg/logger"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

// indexDocument 待索引文档的输入格式
type indexDocument struct {
	DocID    string                 `json:"doc_id"`
	Title    string                 `json:"title"`
	Content  string                 `json:"content"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

func main() {
	var (
		inputPath = flag.String("input", "", "path to a JSON file with documents to index")
		dryRun    = flag.Bool("dry-run", false, "parse and validate input without writing")
	)
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)
	ctx := context.Background()
	log := logger.FromContext(ctx)

	if *inputPath == "" {
		log.Error("missing required flag: -input")
		os.Exit(1)
	}

	docs, err := loadDocuments(*inputPath)
	if err != nil {
		logger.Fatal(ctx, "failed to load input file", err)
	}
	log.Info("input loaded", "file", *inputPath, "documents", len(docs))

	if *dryRun {
		log.Info("dry run, nothing written")
		return
	}

	deps, cleanup, err := wire.InitializeIndexer(ctx, cfg)
	if err != nil {
		logger.Fatal(ctx, "failed to initialize indexer", err)
	}
	defer cleanup()

	// 索引写入需要向量化与索引两条能力同时在线
	if caps := deps.RAGService.Capabilities(); !caps.LLMReady || !caps.IndexReady {
		logger.Fatal(ctx, "rag service unavailable, cannot index", fmt.Errorf("milvus or mistral not configured"))
	}

	indexed := 0
	for i := range docs {
		doc := docs[i]
		if doc.Content == "" {
			log.Warn("skipping document with empty content", "doc_id", doc.DocID)
			continue
		}
		if doc.DocID == "" {
			doc.DocID = uuid.NewString()
		}

		if err := deps.RAGService.AddDocument(ctx, doc.DocID, doc.Title, doc.Content, doc.Metadata); err != nil {
			log.Error("failed to index document", "doc_id", doc.DocID, "error", err)
			continue
		}

		var metaJSON json.RawMessage
		if doc.Metadata != nil {
			metaJSON, _ = json.Marshal(doc.Metadata)
		}
		record := entity.NewDocument(doc.DocID, doc.Title, doc.Content, metaJSON)
		if err := deps.DocRepo.Upsert(ctx, record); err != nil {
			log.Error("failed to persist document record", "doc_id", doc.DocID, "error", err)
			continue
		}

		indexed++
	}

	log.Info("indexing finished", "indexed", indexed, "total", len(docs))
}

// loadDocuments 读取输入文件，兼容纯数组与 {"documents": [...]} 两种格式
func loadDocuments(path string) ([]indexDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var docs []indexDocument
	if err := json.Unmarshal(data, &docs); err == nil {
		return docs, nil
	}

	var wrapper struct {
		Documents []indexDocument `json:"documents"`
	}
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, fmt.Errorf("unrecognized input format: %w", err)
	}
	return wrapper.Documents, nil
}
