package app

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/namhsc/tvtl-sub000/domain"
	"github.com/namhsc/tvtl-sub000/internal/config"
)

const usage = `usage: tvtlauth <command> [flags]

commands:
  status                     show the current session
  login -phone -password     sign in and persist the session
  register -phone -password -otp
                             complete registration with a verification code
  send-otp -phone [-method] [-purpose]
                             request a one-time code (SMS or ZALO)
  reset-password -phone -otp -password -confirm
                             set a new password with a verification code
  refresh                    refresh the access token if near expiry
  profile                    fetch the current user profile
  check -path                evaluate route access for the current session
  logout                     clear the session locally and server-side
  cleanup                    remove expired persisted tokens
`

// Run dispatches one CLI command against a freshly built container.
func Run(cfg *config.Config, args []string) error {
	if len(args) == 0 {
		fmt.Print(usage)
		return fmt.Errorf("missing command")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.APITimeout+10*time.Second)
	defer cancel()

	c, err := NewContainer(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	switch args[0] {
	case "status":
		return runStatus(c)
	case "login":
		return runLogin(ctx, c, args[1:])
	case "register":
		return runRegister(ctx, c, args[1:])
	case "send-otp":
		return runSendOTP(ctx, c, args[1:])
	case "reset-password":
		return runResetPassword(ctx, c, args[1:])
	case "refresh":
		return c.Session.EnsureFresh(ctx)
	case "profile":
		return runProfile(ctx, c)
	case "check":
		return runCheck(c, args[1:])
	case "logout":
		return c.Session.Logout(ctx)
	case "cleanup":
		return c.TokenStore.CleanupExpired(ctx)
	default:
		fmt.Print(usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func runStatus(c *Container) error {
	snap := c.Session.Snapshot()
	if !snap.IsAuthenticated(time.Now()) {
		fmt.Println("not signed in")
		return nil
	}
	if snap.User == nil {
		fmt.Println("signed in (profile not cached; run `tvtlauth profile`)")
		return nil
	}
	fmt.Printf("signed in as %s", snap.User.Phone)
	if snap.User.FullName != "" {
		fmt.Printf(" (%s)", snap.User.FullName)
	}
	fmt.Println()
	fmt.Printf("roles:   %s\n", strings.Join(snap.User.Roles, ", "))
	if !snap.ExpiresAt.IsZero() {
		fmt.Printf("expires: %s\n", snap.ExpiresAt.Format(time.RFC3339))
	}
	return nil
}

func runLogin(ctx context.Context, c *Container, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	phone := fs.String("phone", "", "phone number")
	password := fs.String("password", "", "password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	result, err := c.Session.Login(ctx, domain.LoginRequest{Phone: *phone, Password: *password})
	if err != nil {
		return err
	}
	if !result.OK {
		return fmt.Errorf("%s", result.Message)
	}
	fmt.Printf("signed in as %s\n", result.User.Phone)
	if !result.Completed {
		fmt.Println("profile incomplete; finish it at /complete-profile")
	}
	return nil
}

func runRegister(ctx context.Context, c *Container, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	phone := fs.String("phone", "", "phone number")
	password := fs.String("password", "", "password")
	otp := fs.String("otp", "", "verification code")
	if err := fs.Parse(args); err != nil {
		return err
	}

	result, err := c.Session.Register(ctx, domain.RegisterRequest{
		Phone:    *phone,
		Password: *password,
		OTPCode:  *otp,
	})
	if err != nil {
		return err
	}
	if !result.OK {
		return fmt.Errorf("%s", result.Message)
	}
	fmt.Printf("account created; signed in as %s\n", result.User.Phone)
	return nil
}

func runSendOTP(ctx context.Context, c *Container, args []string) error {
	fs := flag.NewFlagSet("send-otp", flag.ContinueOnError)
	phone := fs.String("phone", "", "phone number")
	method := fs.String("method", "SMS", "delivery channel: SMS or ZALO")
	purpose := fs.String("purpose", "register", "register or reset-password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	err := c.Session.SendOTP(ctx, domain.SendOTPRequest{
		Phone:   *phone,
		Method:  domain.OTPMethod(*method),
		Purpose: domain.OTPPurpose(*purpose),
	})
	if err != nil {
		return err
	}
	fmt.Printf("verification code sent to %s via %s\n", *phone, *method)
	return nil
}

func runResetPassword(ctx context.Context, c *Container, args []string) error {
	fs := flag.NewFlagSet("reset-password", flag.ContinueOnError)
	phone := fs.String("phone", "", "phone number")
	otp := fs.String("otp", "", "verification code")
	password := fs.String("password", "", "new password")
	confirm := fs.String("confirm", "", "new password confirmation")
	if err := fs.Parse(args); err != nil {
		return err
	}

	err := c.Session.ResetPassword(ctx, domain.ResetPasswordRequest{
		Phone:           *phone,
		OTPCode:         *otp,
		NewPassword:     *password,
		ConfirmPassword: *confirm,
	})
	if err != nil {
		return err
	}
	fmt.Println("password updated; sign in with the new password")
	return nil
}

func runProfile(ctx context.Context, c *Container) error {
	if err := c.Session.EnsureFresh(ctx); err != nil {
		return err
	}
	user, err := c.Session.Profile(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("phone:  %s\n", user.Phone)
	if user.FullName != "" {
		fmt.Printf("name:   %s\n", user.FullName)
	}
	fmt.Printf("roles:  %s\n", strings.Join(user.Roles, ", "))
	fmt.Printf("points: %d\n", user.Points)
	return nil
}

func runCheck(c *Container, args []string) error {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	path := fs.String("path", "/", "route path to evaluate")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rule := matchRule(c.Config.Routes, *path)
	decision := c.Guard.Evaluate(c.Session.Snapshot(), rule)
	switch decision.Kind {
	case domain.DecisionRender:
		fmt.Printf("%s: allowed\n", *path)
	case domain.DecisionRedirect:
		fmt.Printf("%s: redirect to %s\n", *path, decision.RedirectTo)
	case domain.DecisionDenied:
		fmt.Printf("%s: denied (roles: %s)\n", *path, strings.Join(decision.Roles, ", "))
	default:
		fmt.Printf("%s: session still loading\n", *path)
	}
	return nil
}

// matchRule resolves a concrete path against the route table, treating
// :param segments as single-segment wildcards. Unknown paths fall back to
// an unrestricted rule.
func matchRule(routes []domain.RouteRule, path string) domain.RouteRule {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for _, rule := range routes {
		pattern := strings.Split(strings.Trim(rule.Path, "/"), "/")
		if len(pattern) != len(segments) {
			continue
		}
		matched := true
		for i, p := range pattern {
			if !strings.HasPrefix(p, ":") && p != segments[i] {
				matched = false
				break
			}
		}
		if matched {
			return rule
		}
	}
	return domain.RouteRule{Path: path}
}
