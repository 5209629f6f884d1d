package slurm

import (
	"testing"
)

// Output shaped like `sshare -a -P`: a header line, then account rows with an
// empty user field and user rows carrying both fields.  Leading blanks mimic
// the tree indentation sshare emits even in parsable mode.
const sshareOutput = `Account|User|RawShares|NormShares|RawUsage|EffectvUsage|FairShare
root||1|0.000000|13452552|1.000000|
 root|root|1|0.033333|0|0.000000|1.000000
 orphan||1|0.033333|54321|0.004038|
 phys||1|0.033333|1048576|0.077946|
  phys|parent|1|0.077946|1048576|1.000000|
  phys|alice|1|0.025982|524288|0.500000|0.432100
  phys|bob|1|0.025982|524288|0.500000|0.432100
 chem||1|0.033333|262144|0.019487|
  chem||1|0.019487|0|0.000000|
  chem|carol|1|0.009743|262144|1.000000|0.876543
 phys||1|0.033333|0|0.000000|
`

func TestParseAccounts(t *testing.T) {
	accounts, err := parseAccounts(sshareOutput)
	if err != nil {
		t.Fatal(err)
	}
	expect := []string{"root", "phys", "chem"}
	if len(accounts) != len(expect) {
		t.Fatalf("Expected %d accounts, got %v", len(expect), accounts)
	}
	for i, a := range expect {
		if accounts[i] != a {
			t.Fatalf("Account %d: expected %s, got %s", i, a, accounts[i])
		}
	}
}

func TestParseAccountsEmpty(t *testing.T) {
	_, err := parseAccounts("")
	if err == nil {
		t.Fatal("Empty output should fail")
	}
}

func TestParseUsers(t *testing.T) {
	users, err := parseUsers(sshareOutput, "phys")
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 2 || users[0] != "alice" || users[1] != "bob" {
		t.Fatalf("phys: got %v", users)
	}
	users, err = parseUsers(sshareOutput, "chem")
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 1 || users[0] != "carol" {
		t.Fatalf("chem: got %v", users)
	}
	users, err = parseUsers(sshareOutput, "bio")
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 0 {
		t.Fatalf("bio: got %v", users)
	}
}
