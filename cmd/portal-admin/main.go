// portal-admin manages accounts directly against the portal database, for
// bootstrapping the first admin and recovering locked-out users.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/thehamish555/49SQN-Automation/internal/auth"
	"github.com/thehamish555/49SQN-Automation/internal/config"
	"github.com/thehamish555/49SQN-Automation/internal/permissions"
	"github.com/thehamish555/49SQN-Automation/internal/store"
)

func main() {
	log.SetFlags(0)
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	st := openStore()
	defer st.Close()

	switch os.Args[1] {
	case "adduser":
		addUser(st, os.Args[2:])
	case "resetpassword":
		resetPassword(st, os.Args[2:])
	case "listusers":
		listUsers(st)
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage:
  portal-admin adduser -name NAME -email EMAIL -password PASSWORD [-permissions P1,P2]
  portal-admin resetpassword -email EMAIL -password PASSWORD
  portal-admin listusers`)
}

func openStore() *store.Store {
	cfg, err := config.LoadConfig()
	if err != nil {
		cfg = config.DefaultConfig()
	}
	dataDir, err := config.EnsureDataDir(cfg)
	if err != nil {
		log.Fatalf("prepare data dir: %v", err)
	}
	st, err := store.New(filepath.Join(dataDir, "portal.db"))
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	return st
}

func addUser(st *store.Store, args []string) {
	fs := flag.NewFlagSet("adduser", flag.ExitOnError)
	name := fs.String("name", "", "display name, used for instructor matching")
	email := fs.String("email", "", "sign-in email")
	password := fs.String("password", "", "initial password")
	perms := fs.String("permissions", "", "comma-separated permissions")
	fs.Parse(args)

	if *name == "" || *email == "" || *password == "" {
		log.Fatal("adduser: -name, -email and -password are required")
	}

	structure := permissions.Default()
	var grants []string
	for _, p := range strings.Split(*perms, ",") {
		if p = strings.TrimSpace(p); p == "" {
			continue
		}
		if !structure.Known(p) {
			log.Fatalf("unknown permission %q (known: %s)", p, strings.Join(structure.Names(), ", "))
		}
		grants = append(grants, p)
	}

	hash, err := auth.HashPassword(*password)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	user := &store.User{Name: *name, Email: *email, Permissions: grants, PasswordHash: hash}
	if err := st.CreateUser(user); err != nil {
		log.Fatalf("create user: %v", err)
	}
	fmt.Printf("created %s <%s> (%s)\n", user.Name, user.Email, user.ID)
}

func resetPassword(st *store.Store, args []string) {
	fs := flag.NewFlagSet("resetpassword", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "new password")
	fs.Parse(args)

	if *email == "" || *password == "" {
		log.Fatal("resetpassword: -email and -password are required")
	}

	user, err := st.GetUserByEmail(*email)
	if err != nil {
		log.Fatalf("find user: %v", err)
	}
	hash, err := auth.HashPassword(*password)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}
	if err := st.SetUserPassword(user.ID, hash); err != nil {
		log.Fatalf("set password: %v", err)
	}
	fmt.Printf("password reset for %s\n", user.Email)
}

func listUsers(st *store.Store) {
	users, err := st.ListUsers()
	if err != nil {
		log.Fatalf("list users: %v", err)
	}
	for _, u := range users {
		perms := strings.Join(u.Permissions, ", ")
		if perms == "" {
			perms = "-"
		}
		fmt.Printf("%-36s  %-30s  %s\n", u.ID, u.Email, perms)
	}
}
