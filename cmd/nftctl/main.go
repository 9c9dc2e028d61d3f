package main

import (
	"fmt"
	"io"
	"os"
)

const (
	uploadCommand  = "upload"
	tokenCommand   = "token"
	keygenCommand  = "keygen"
	signCommand    = "sign-fulfillment"
	exportCommand  = "export"
	defaultConfig  = "./config.toml"
	defaultPassEnv = "RANDOMNFT_COORDINATOR_PASS"
)

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case uploadCommand:
		err = runUpload(os.Args[2:], os.Stdout)
	case tokenCommand:
		err = runToken(os.Args[2:], os.Stdout)
	case keygenCommand:
		err = runKeygen(os.Args[2:], os.Stdout)
	case signCommand:
		err = runSign(os.Args[2:], os.Stdout)
	case exportCommand:
		err = runExport(os.Args[2:], os.Stdout)
	case "-h", "--help", "help":
		usage(os.Stdout)
		return
	default:
		usage(os.Stderr)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: nftctl <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintf(w, "  %-17s pin collection images and token documents, optionally writing the token URIs into the config\n", uploadCommand)
	fmt.Fprintf(w, "  %-17s issue a bearer token for an account\n", tokenCommand)
	fmt.Fprintf(w, "  %-17s create a coordinator keystore\n", keygenCommand)
	fmt.Fprintf(w, "  %-17s sign random words for a pending request as the coordinator\n", signCommand)
	fmt.Fprintf(w, "  %-17s export indexed mints as parquet, csv or jsonl\n", exportCommand)
}
