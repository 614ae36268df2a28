package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/heysubinoy/pyazkv/internal/pubsub"
	"github.com/heysubinoy/pyazkv/pkg/kv"
	"github.com/heysubinoy/pyazkv/pkg/kvrpc"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	if command == "publish" {
		handlePublish(os.Args[2:])
		return
	}

	grpcAddr := getenv("KV_GRPC_ADDR", "localhost:9090")
	conn, err := grpc.NewClient("passthrough:///"+grpcAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()

	client := kvrpc.NewClient(conn)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	switch command {
	case "get":
		if len(os.Args) < 3 {
			fmt.Println("Usage: kv-cli get <key>")
			os.Exit(1)
		}
		handleGet(ctx, client, os.Args[2])

	case "set":
		if len(os.Args) < 4 {
			fmt.Println("Usage: kv-cli set <key> <value>")
			os.Exit(1)
		}
		handleSet(ctx, client, os.Args[2], os.Args[3])

	case "delete":
		if len(os.Args) < 3 {
			fmt.Println("Usage: kv-cli delete <key>")
			os.Exit(1)
		}
		handleDelete(ctx, client, os.Args[2])

	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func handleGet(ctx context.Context, client *kvrpc.Client, key string) {
	resp, err := client.Get(ctx, key)
	if kv.IsNotFound(err) {
		fmt.Printf("Key '%s' not found\n", key)
		os.Exit(1)
	}
	if err != nil {
		log.Fatalf("Get failed: %v", err)
	}
	fmt.Println(resp.Value)
}

func handleSet(ctx context.Context, client *kvrpc.Client, key, value string) {
	if _, err := client.Save(ctx, key, value); err != nil {
		log.Fatalf("Set failed: %v", err)
	}
	fmt.Printf("Set '%s' = '%s'\n", key, value)
}

func handleDelete(ctx context.Context, client *kvrpc.Client, key string) {
	resp, err := client.Delete(ctx, key)
	if kv.IsNotFound(err) {
		fmt.Printf("Key '%s' not found\n", key)
		os.Exit(1)
	}
	if err != nil {
		log.Fatalf("Delete failed: %v", err)
	}
	fmt.Printf("Deleted '%s' (was '%s')\n", key, resp.Value)
}

// handlePublish sends a fire-and-forget message over NATS.
func handlePublish(args []string) {
	if len(args) < 2 || (args[0] == "save" && len(args) < 3) {
		fmt.Println("Usage: kv-cli publish save <key> <value> | kv-cli publish delete <key>")
		os.Exit(1)
	}

	conn, err := pubsub.Connect(getenv("NATS_URL", "nats://127.0.0.1:4222"), pubsub.ConnectOptions{Name: "kv-cli", MaxReconnects: 1})
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()

	pub := pubsub.NewPublisher(conn, getenv("NATS_SUBJECT", pubsub.DefaultSubject))
	switch args[0] {
	case "save":
		err = pub.Save(args[1], args[2])
	case "delete":
		err = pub.Delete(args[1])
	default:
		fmt.Printf("Unknown publish operation: %s\n", args[0])
		os.Exit(1)
	}
	if err != nil {
		log.Fatalf("Publish failed: %v", err)
	}
	fmt.Printf("Published %s for '%s'\n", args[0], args[1])
}

func getenv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  kv-cli get <key>")
	fmt.Println("  kv-cli set <key> <value>")
	fmt.Println("  kv-cli delete <key>")
	fmt.Println("  kv-cli publish save <key> <value>")
	fmt.Println("  kv-cli publish delete <key>")
	fmt.Println("")
	fmt.Println("Environment variables:")
	fmt.Println("  KV_GRPC_ADDR - gRPC server address (default: localhost:9090)")
	fmt.Println("  NATS_URL     - NATS server URL for publish (default: nats://127.0.0.1:4222)")
	fmt.Println("  NATS_SUBJECT - subject tree the server listens on (default: pyazkv.repository.>)")
}
