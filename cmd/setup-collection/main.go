package main

import (
	"context"
	"log"

	"carbonlens-backend/vectorstore"

	"github.com/joho/godotenv"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

func main() {
	if err := godotenv.Load(); err != nil {
		if err := godotenv.Load("../../.env"); err != nil {
			log.Printf("Warning: No .env file found, using environment variables")
		}
	}

	ctx := context.Background()
	cfg := vectorstore.ConfigFromEnv()

	c, err := vectorstore.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Milvus: %v", err)
	}

	exists, err := c.HasCollection(ctx, cfg.Collection)
	if err != nil {
		log.Fatalf("Failed to check collection: %v", err)
	}
	log.Printf("Does collection %s exist in Milvus: %v", cfg.Collection, exists)

	if exists {
		if err := c.DropCollection(ctx, cfg.Collection); err != nil {
			log.Fatalf("Failed to drop collection: %v", err)
		}
		log.Printf("Dropped existing collection %s", cfg.Collection)
	}

	schema := entity.NewSchema().
		WithName(cfg.Collection).
		WithDescription("Vector DB for document embeddings").
		WithField(entity.NewField().WithName("id").WithDataType(entity.FieldTypeInt64).WithIsPrimaryKey(true).WithIsAutoID(true)).
		WithField(entity.NewField().WithName("doc_id").WithDataType(entity.FieldTypeVarChar).WithMaxLength(256)).
		WithField(entity.NewField().WithName("text").WithDataType(entity.FieldTypeVarChar).WithMaxLength(65535)).
		WithField(entity.NewField().WithName("embedding").WithDataType(entity.FieldTypeFloatVector).WithDim(vectorstore.Dimension)).
		WithField(entity.NewField().WithName("metadata").WithDataType(entity.FieldTypeJSON))

	if err := c.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
		log.Fatalf("Failed to create collection: %v", err)
	}
	log.Printf("Created collection %s", cfg.Collection)

	index, err := entity.NewIndexIvfFlat(entity.L2, 128)
	if err != nil {
		log.Fatalf("Failed to build index definition: %v", err)
	}
	if err := c.CreateIndex(ctx, cfg.Collection, "embedding", index, false); err != nil {
		log.Fatalf("Failed to create index: %v", err)
	}
	log.Println("Created IVF_FLAT index on embedding field")

	if err := c.LoadCollection(ctx, cfg.Collection, false); err != nil {
		log.Printf("Warning: Could not load collection: %v", err)
	} else {
		log.Printf("Collection %s loaded", cfg.Collection)
	}

	log.Println("Milvus collection setup complete")
}
