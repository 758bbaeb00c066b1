// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
)

// ExpandPath expands a leading ~ to the home directory.
func ExpandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return home + path[1:]
		}
	}
	return path
}

// TLSFiles resolves a certificate and key pair. ok is false when neither
// is set; setting only one, or naming a missing file, is an error.
func TLSFiles(certPath, keyPath string) (cert, key string, ok bool, err error) {
	if certPath == "" && keyPath == "" {
		return "", "", false, nil
	}
	if certPath == "" || keyPath == "" {
		return "", "", false, fmt.Errorf("both tls_cert and tls_key must be specified (got cert=%q, key=%q)", certPath, keyPath)
	}

	cert = ExpandPath(certPath)
	key = ExpandPath(keyPath)
	if _, err := os.Stat(cert); err != nil {
		return "", "", false, fmt.Errorf("tls_cert file not found: %s", cert)
	}
	if _, err := os.Stat(key); err != nil {
		return "", "", false, fmt.Errorf("tls_key file not found: %s", key)
	}
	return cert, key, true, nil
}
