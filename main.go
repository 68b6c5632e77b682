// api/main.go
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	migrateCmd.Flags().Int64Var(&migrateOrderID, "order", 0, "Only migrate this order")
	createStaffCmd.Flags().StringVar(&staffEmail, "email", "", "Staff member email")
	createStaffCmd.Flags().StringVar(&staffPassword, "password", "", "Staff member password")
	_ = createStaffCmd.MarkFlagRequired("email")
	_ = createStaffCmd.MarkFlagRequired("password")

	rootCmd.AddCommand(serveCmd, migrateCmd, createStaffCmd)
}
