package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"
	"strings"

	"carbonlens-backend/embedding"
	"carbonlens-backend/extraction"
	"carbonlens-backend/pipeline"
	"carbonlens-backend/vectorstore"

	"github.com/joho/godotenv"
)

// Bulk-ingest a directory of PDFs into the vector store, bypassing the HTTP
// surface and document database.
func main() {
	dir := flag.String("dir", "", "directory of PDF files to ingest")
	flag.Parse()

	if *dir == "" {
		log.Fatal("Usage: ingest -dir <directory of PDFs>")
	}

	if err := godotenv.Load(); err != nil {
		if err := godotenv.Load("../../.env"); err != nil {
			log.Printf("Warning: No .env file found, using environment variables")
		}
	}

	ctx := context.Background()

	extractor := extraction.NewExtractorFromEnv()
	ocr := extraction.NewOCRProcessor(extraction.OCRConfigFromEnv())

	tokenizer, err := embedding.NewTiktokenTokenizer()
	if err != nil {
		log.Fatalf("Failed to initialize tokenizer: %v", err)
	}
	embedder := embedding.NewEmbedder(embedding.ConfigFromEnv(), tokenizer)

	store, err := vectorstore.NewStore(ctx, vectorstore.ConfigFromEnv())
	if err != nil {
		log.Fatalf("Failed to initialize vector store: %v", err)
	}

	ingestion := pipeline.NewIngestionPipeline(extractor, ocr, embedder, store)

	entries, err := os.ReadDir(*dir)
	if err != nil {
		log.Fatalf("Failed to read directory %s: %v", *dir, err)
	}

	var processed, failed int
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			continue
		}
		path := filepath.Join(*dir, entry.Name())
		if _, err := ingestion.ProcessDocument(ctx, path); err != nil {
			log.Printf("Error: failed to ingest %s: %v", path, err)
			failed++
			continue
		}
		processed++
	}

	log.Printf("Ingestion complete: %d processed, %d failed", processed, failed)
}
