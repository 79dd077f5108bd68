// The certcli binary drives the certificate workflow from the command line:
// issue and sign a certificate for a file, verify a file against a stored
// certificate, and decrypt a threshold-encrypted artifact.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/attestry/provenance-backend/api/clients"
	"github.com/attestry/provenance-backend/certificate"
	"github.com/attestry/provenance-backend/cmd/flags"
	"github.com/attestry/provenance-backend/interfaces"
	"github.com/attestry/provenance-backend/signature"
	"github.com/attestry/provenance-backend/thresholdenc"
	"github.com/urfave/cli/v2"
)

var keyHexFlag = &cli.StringFlag{
	Name:     "key-hex",
	Required: true,
	Usage:    "hex-encoded secp256k1 private key used for signing",
}

var serverFlag = &cli.StringFlag{
	Name:  "server",
	Value: "http://127.0.0.1:8080",
	Usage: "certificate server base URL",
}

var keyserversFlag = &cli.StringSliceFlag{
	Name:  "keyserver",
	Usage: "key server base URLs; repeat for each server in the set",
}

func main() {
	app := &cli.App{
		Name:  "certcli",
		Usage: "Issue, verify and decrypt provenance certificates",
		Flags: []cli.Flag{flags.LogJSONFlag, flags.LogDebugFlag, flags.LogServiceFlag, flags.LogUIDFlag},
		Commands: []*cli.Command{
			issueCommand(),
			verifyCommand(),
			decryptCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func issueCommand() *cli.Command {
	return &cli.Command{
		Name:  "issue",
		Usage: "Create, sign and publish a certificate for a file",
		Flags: []cli.Flag{
			keyHexFlag,
			serverFlag,
			keyserversFlag,
			&cli.StringFlag{Name: "file", Required: true, Usage: "path of the artifact file"},
			&cli.StringFlag{Name: "type", Value: interfaces.TypeContent, Usage: "certificate type: content, model or dataset"},
			&cli.StringFlag{Name: "media-type", Value: "application/octet-stream", Usage: "artifact media type"},
			&cli.BoolFlag{Name: "encrypt", Usage: "threshold-encrypt the artifact before upload"},
			&cli.IntFlag{Name: "threshold", Value: 2, Usage: "key share quorum size when encrypting"},
			&cli.StringSliceFlag{Name: "allow", Usage: "addresses allowed to decrypt besides the owner"},
		},
		Action: runIssue,
	}
}

func runIssue(cCtx *cli.Context) error {
	logger := flags.SetupLogger(cCtx)
	ctx := cCtx.Context

	signer, err := signature.NewSECP256K1SignerFromHex(cCtx.String("key-hex"))
	if err != nil {
		return err
	}

	path := cCtx.String("file")
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("could not read artifact: %w", err)
	}

	cert := certificate.New(signer.Address(), cCtx.String("type"), data, certificate.ArtifactParams{
		MediaType: cCtx.String("media-type"),
		Filename:  path,
	}, time.Now())

	proof, err := signature.Sign(ctx, cert, signer)
	if err != nil {
		return err
	}
	cert.Proofs = append(cert.Proofs, proof)

	upload := data
	if cCtx.Bool("encrypt") {
		upload, err = encryptArtifact(ctx, cCtx, signer, cert, data)
		if err != nil {
			return err
		}
	}

	client := clients.NewCertClient(cCtx.String("server"))
	blobLocator, err := client.SubmitBlob(ctx, upload)
	if err != nil {
		return fmt.Errorf("could not upload artifact: %w", err)
	}
	if cert.Encryption != nil {
		cert.Encryption.BlobLocator = blobLocator.String()
	}

	certLocator, err := client.Submit(ctx, cert)
	if err != nil {
		return fmt.Errorf("could not publish certificate: %w", err)
	}
	cert.Storage = &interfaces.StorageInfo{
		CertLocator: certLocator.String(),
		BlobLocator: blobLocator.String(),
	}

	logger.Info("Certificate issued",
		"cert_locator", certLocator.String(),
		"blob_locator", blobLocator.String(),
		"author", cert.Author.String(),
		"digest", cert.Artifact.Digest.String())
	fmt.Println(certLocator.String())
	return nil
}

func encryptArtifact(ctx context.Context, cCtx *cli.Context, signer *signature.SECP256K1Signer, cert *interfaces.Certificate, data []byte) ([]byte, error) {
	protocol, err := buildProtocol(cCtx)
	if err != nil {
		return nil, err
	}

	policy := interfaces.AccessPolicy{Mode: interfaces.PolicyOwnerOnly}
	if allowed := cCtx.StringSlice("allow"); len(allowed) > 0 {
		policy.Mode = interfaces.PolicyAllowlist
		for _, hexAddr := range allowed {
			addr, err := interfaces.NewOwnerAddressFromHex(hexAddr)
			if err != nil {
				return nil, fmt.Errorf("invalid allowlist address %q: %w", hexAddr, err)
			}
			policy.Allowlist = append(policy.Allowlist, addr)
		}
	}

	ciphertext, info, err := protocol.Encrypt(ctx, data, signer.Address(), policy)
	if err != nil {
		return nil, fmt.Errorf("could not encrypt artifact: %w", err)
	}
	cert.Encryption = info
	return ciphertext, nil
}

func verifyCommand() *cli.Command {
	return &cli.Command{
		Name:  "verify",
		Usage: "Verify a file against a published certificate",
		Flags: []cli.Flag{
			serverFlag,
			&cli.StringFlag{Name: "file", Required: true, Usage: "path of the candidate file"},
			&cli.StringFlag{Name: "locator", Required: true, Usage: "certificate locator"},
		},
		Action: func(cCtx *cli.Context) error {
			ctx := cCtx.Context
			client := clients.NewCertClient(cCtx.String("server"))

			cert, err := client.Fetch(ctx, interfaces.BlobLocator(cCtx.String("locator")))
			if err != nil {
				return err
			}

			data, err := os.ReadFile(cCtx.String("file"))
			if err != nil {
				return fmt.Errorf("could not read file: %w", err)
			}

			report := signature.Examine(cert, data)
			fmt.Printf("structure: %v\nhash: %v\nsignature: %v\ndataset: %v\n",
				report.StructureOK, report.HashOK, report.SignatureOK, report.DatasetOK)
			if !report.Valid() {
				return cli.Exit("verification FAILED", 1)
			}
			fmt.Println("verification OK")
			return nil
		},
	}
}

func decryptCommand() *cli.Command {
	return &cli.Command{
		Name:  "decrypt",
		Usage: "Decrypt a threshold-encrypted artifact via its certificate",
		Flags: []cli.Flag{
			keyHexFlag,
			serverFlag,
			keyserversFlag,
			&cli.StringFlag{Name: "locator", Required: true, Usage: "certificate locator"},
			&cli.StringFlag{Name: "out", Required: true, Usage: "path to write the decrypted artifact"},
			&cli.IntFlag{Name: "threshold", Value: 2, Usage: "key share quorum size"},
		},
		Action: runDecrypt,
	}
}

func runDecrypt(cCtx *cli.Context) error {
	ctx := cCtx.Context

	signer, err := signature.NewSECP256K1SignerFromHex(cCtx.String("key-hex"))
	if err != nil {
		return err
	}

	client := clients.NewCertClient(cCtx.String("server"))
	cert, err := client.Fetch(ctx, interfaces.BlobLocator(cCtx.String("locator")))
	if err != nil {
		return err
	}
	if cert.Encryption == nil || !cert.Encryption.Enabled {
		return cli.Exit("certificate has no encryption annex", 1)
	}

	ciphertext, err := client.FetchBlob(ctx, interfaces.BlobLocator(cert.Encryption.BlobLocator))
	if err != nil {
		return fmt.Errorf("could not fetch encrypted artifact: %w", err)
	}

	protocol, err := buildProtocol(cCtx)
	if err != nil {
		return err
	}

	session, err := thresholdenc.EstablishSession(ctx, signer, 0)
	if err != nil {
		return err
	}
	token, err := thresholdenc.NewAuthorizationToken(signer.Address(), cert.Encryption.KeyID).Encode()
	if err != nil {
		return err
	}

	plaintext, err := protocol.Decrypt(ctx, ciphertext, token, session)
	if err != nil {
		return err
	}

	// The decrypted bytes must match the certified digest before we hand
	// them to the caller.
	if !certificate.MatchesFile(cert, plaintext) {
		return cli.Exit("decrypted content does not match certificate digest", 1)
	}

	if err := os.WriteFile(cCtx.String("out"), plaintext, 0600); err != nil {
		return fmt.Errorf("could not write output: %w", err)
	}
	fmt.Println("decrypted", len(plaintext), "bytes")
	return nil
}

func buildProtocol(cCtx *cli.Context) (*thresholdenc.Protocol, error) {
	urls := cCtx.StringSlice("keyserver")
	if len(urls) == 0 {
		return nil, fmt.Errorf("at least one --keyserver is required")
	}

	servers := make([]interfaces.KeyServer, 0, len(urls))
	for i, url := range urls {
		servers = append(servers, clients.NewKeyServerClient(fmt.Sprintf("keyserver-%d", i+1), url))
	}

	return thresholdenc.New(thresholdenc.Config{
		Threshold:  cCtx.Int("threshold"),
		KeyServers: servers,
	})
}
