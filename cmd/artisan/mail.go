package main

import (
	"context"

	"github.com/dmitrijs2005/skeleton/internal/server/mail"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
)

// templateCustom tags free-form mail sent with send-mail.
const templateCustom = "custom"

// NewSendMailCmd creates the send-mail subcommand.
func NewSendMailCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "send-mail <to> <title> <content>",
		Short: "Send a free-form HTML mail",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return sendMail(cmd, deps, func(*mail.Composer) (mail.Message, error) {
				return mail.Message{To: args[0], Title: args[1], Content: args[2], Template: templateCustom}, nil
			})
		},
	}
}

// NewSendRegisterMailCmd creates the send-register-mail subcommand.
func NewSendRegisterMailCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "send-register-mail <to> <username>",
		Short: "Send the welcome mail",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return sendMail(cmd, deps, func(c *mail.Composer) (mail.Message, error) {
				return c.Register(args[0], args[1])
			})
		},
	}
}

// NewSendResetMailCmd creates the send-reset-mail subcommand.
func NewSendResetMailCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "send-reset-mail <to> <username> <token>",
		Short: "Send a password reset code mail",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return sendMail(cmd, deps, func(c *mail.Composer) (mail.Message, error) {
				return c.Reset(args[0], args[1], args[2])
			})
		},
	}
}

func sendMail(cmd *cobra.Command, deps *Deps, render func(*mail.Composer) (mail.Message, error)) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), defaultTimeout)
	defer cancel()

	sender, composer, err := deps.OpenMailer(ctx)
	if err != nil {
		return err
	}

	msg, err := render(composer)
	if err != nil {
		return oops.Code("MAIL_RENDER_FAILED").Wrap(err)
	}

	if err := sender.Send(ctx, msg); err != nil {
		return oops.Code("MAIL_SEND_FAILED").With("to", msg.To).With("template", msg.Template).Wrap(err)
	}

	cmd.Printf("Sent %s mail to %s\n", msg.Template, msg.To)
	return nil
}
