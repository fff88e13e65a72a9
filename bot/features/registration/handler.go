package registration

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"pixelponies/bot/common"
	"pixelponies/domain/entities"
	"pixelponies/domain/interfaces"
	"pixelponies/domain/services"

	log "github.com/sirupsen/logrus"
)

func (f *Feature) handleStart(ctx context.Context, cmd common.Command) (string, error) {
	uow := f.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return "", common.NewSystemError(err, "failed to begin transaction")
	}
	defer uow.Rollback()

	userService := f.services.UserService(uow)

	user, isNew, err := userService.Register(ctx, cmd.UserID, cmd.Username, cmd.FirstName)
	if err != nil {
		return "", common.FromError(err, "failed to register user")
	}

	referralNote := ""
	if code := cmd.Arg(0); code != "" && isNew {
		referred, err := userService.ApplyReferral(ctx, cmd.UserID, code)
		switch {
		case errors.Is(err, interfaces.ErrInvalidReferral):
			referralNote = "\n⚠️ That referral link is not valid, but you're still in!"
		case err != nil:
			return "", common.FromError(err, "failed to apply referral")
		case referred.IsReferred():
			referralNote = "\n🤝 Referral applied! You both earn a bonus after your first race."
		}
	}

	if err := uow.Commit(); err != nil {
		return "", common.NewSystemError(err, "failed to commit transaction")
	}

	log.WithFields(log.Fields{
		"user_id": cmd.UserID,
		"new":     isNew,
	}).Debug("Handled /start")

	return f.welcome(user, isNew) + referralNote, nil
}

func (f *Feature) welcome(user *entities.User, isNew bool) string {
	var b strings.Builder

	if isNew {
		fmt.Fprintf(&b, "🐴 <b>Welcome to Pixel Ponies, %s!</b>\n\n", common.Escape(user.DisplayName()))
	} else {
		fmt.Fprintf(&b, "🐴 <b>Welcome back, %s!</b>\n\n", common.Escape(user.DisplayName()))
	}

	b.WriteString("Races run every few minutes. Pick a horse, tweet your pick, and win $" + f.symbol + ".\n\n")
	if !user.HasWallet() {
		b.WriteString("1️⃣ Register your Base wallet: /register 0xYourAddress\n")
	} else {
		fmt.Fprintf(&b, "1️⃣ Wallet on file: <code>%s</code>\n", common.ShortHash(*user.WalletAddress))
	}
	b.WriteString("2️⃣ See the open race: /race\n")
	b.WriteString("3️⃣ Pick a horse: /horse &lt;number&gt;\n")
	b.WriteString("4️⃣ Confirm with your tweet: /verify &lt;tweet link&gt;\n\n")
	fmt.Fprintf(&b, "🔗 Invite friends: %s\nAll commands: /help", f.referralLink(user))

	return b.String()
}

func (f *Feature) handleWallet(ctx context.Context, cmd common.Command) (string, error) {
	address := cmd.Arg(0)
	if address == "" {
		return "", common.NewUserError("Usage: /register 0xYourBaseWalletAddress", "missing wallet argument")
	}

	uow := f.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return "", common.NewSystemError(err, "failed to begin transaction")
	}
	defer uow.Rollback()

	userService := f.services.UserService(uow)

	if _, _, err := userService.Register(ctx, cmd.UserID, cmd.Username, cmd.FirstName); err != nil {
		return "", common.FromError(err, "failed to register user")
	}

	user, err := userService.SetWallet(ctx, cmd.UserID, address)
	if err != nil {
		return "", common.FromError(err, "failed to set wallet")
	}

	if err := uow.Commit(); err != nil {
		return "", common.NewSystemError(err, "failed to commit transaction")
	}

	return fmt.Sprintf("✅ Wallet registered: <code>%s</code>\n\nYou're ready to race! Check the field with /race.",
		common.Escape(*user.WalletAddress)), nil
}

func (f *Feature) handleTwitter(ctx context.Context, cmd common.Command) (string, error) {
	handle := strings.TrimPrefix(cmd.Arg(0), "@")
	if handle == "" {
		return "", common.NewUserError("Usage: /twitter yourhandle", "missing twitter handle")
	}

	uow := f.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return "", common.NewSystemError(err, "failed to begin transaction")
	}
	defer uow.Rollback()

	userService := f.services.UserService(uow)

	if _, _, err := userService.Register(ctx, cmd.UserID, cmd.Username, cmd.FirstName); err != nil {
		return "", common.FromError(err, "failed to register user")
	}
	if err := userService.SetTwitterHandle(ctx, cmd.UserID, handle); err != nil {
		return "", common.FromError(err, "failed to set twitter handle")
	}

	if err := uow.Commit(); err != nil {
		return "", common.NewSystemError(err, "failed to commit transaction")
	}

	return fmt.Sprintf("✅ Twitter handle saved: @%s", common.Escape(handle)), nil
}

func (f *Feature) referralLink(user *entities.User) string {
	return services.ReferralLink(f.botUsername, user.ReferralCode)
}
