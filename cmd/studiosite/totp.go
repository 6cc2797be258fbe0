// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"studiosite/internal/twofa"
)

func (a *app) totpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "totp",
		Short: "Manage the admin second factor",
	}

	newCmd := &cobra.Command{
		Use:   "new",
		Short: "Generate a TOTP secret for ADMIN_TOTP_SECRET",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := twofa.Generate(a.cfg.SiteName)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ADMIN_TOTP_SECRET=%s\n", key.Secret())
			fmt.Fprintf(out, "otpauth URL: %s\n", key.URL())
			return nil
		},
	}

	var qrOut string
	qr := &cobra.Command{
		Use:   "qr",
		Short: "Write the enrolment QR code for the configured secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.AdminTOTPSecret == "" {
				return errors.New("ADMIN_TOTP_SECRET is not set")
			}
			key, err := twofa.Key(a.cfg.AdminTOTPSecret, a.cfg.SiteName)
			if err != nil {
				return err
			}
			if err := twofa.WriteQRCode(key, qrOut); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", qrOut)
			return nil
		},
	}
	qr.Flags().StringVarP(&qrOut, "out", "o", "totp.png", "PNG file to write")

	cmd.AddCommand(newCmd, qr)
	return cmd
}
