//go:build deps
// +build deps

// Package internal (deps build tag) pins indirect third-party dependencies
// that are only reachable through optional backends, so `go mod tidy`
// never drops them for lack of a direct import path.
package internal

import (
	_ "github.com/gin-gonic/gin"
	_ "github.com/golang-migrate/migrate/v4"
	_ "github.com/google/uuid"
	_ "github.com/jackc/pgx/v5"
	_ "github.com/minio/minio-go/v7"
	_ "github.com/neo4j/neo4j-go-driver/v5/neo4j"
	_ "github.com/opensearch-project/opensearch-go/v2/opensearchapi"
	_ "github.com/prometheus/client_golang/prometheus"
	_ "github.com/redis/go-redis/v9"
	_ "github.com/segmentio/kafka-go"
	_ "github.com/spf13/cobra"
	_ "google.golang.org/grpc"
	_ "google.golang.org/protobuf/proto"
)
