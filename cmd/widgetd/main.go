// Command widgetd runs a demo widget inventory service built on strut.
//
// Run the server:
//
//	go run ./cmd/widgetd serve
//
// Generate the OpenAPI document:
//
//	go run ./cmd/widgetd spec                 (print JSON to stdout)
//	go run ./cmd/widgetd spec --yaml          (print YAML instead)
//	go run ./cmd/widgetd spec -o openapi.json (write to a file)
//	go run ./cmd/widgetd spec --check         (validate and exit)
//
// Then explore:
//
//	GET    http://localhost:8080/openapi.json        OpenAPI document
//	GET    http://localhost:8080/docs                API docs UI
//	GET    http://localhost:8080/healthz             health check
//	GET    http://localhost:8080/widgets             list widgets
//	POST   http://localhost:8080/widgets             create widget
//	GET    http://localhost:8080/widgets/count       count widgets
//	GET    http://localhost:8080/widgets/{id}        get widget
//	PUT    http://localhost:8080/widgets/{id}        update widget
//	DELETE http://localhost:8080/widgets/{id}        delete widget
//	GET    http://localhost:8080/widgets/{id}/image  download widget image
//	PUT    http://localhost:8080/widgets/{id}/image  upload widget image
//	GET    http://localhost:8080/watch               websocket change feed
//	GET    http://localhost:8080/metrics             Prometheus metrics
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "widgetd",
		Short:         "Demo widget inventory service built on strut",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		specCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "widgetd: %s\n", err)
		os.Exit(1)
	}
}
