package operator

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/peterh/liner"
	"github.com/pkg/errors"

	"github.com/sheikh-saqib/custom-token-ledger/internal/config"
	"github.com/sheikh-saqib/custom-token-ledger/internal/signer"
)

// Prompter reads answers from the operator.
type Prompter interface {
	Prompt(prompt string) (string, error)
	// PromptPassword reads without echoing the input.
	PromptPassword(prompt string) (string, error)
	Close() error
}

// TerminalPrompter is a Prompter backed by liner.
type TerminalPrompter struct {
	state *liner.State
}

func NewTerminalPrompter() *TerminalPrompter {
	state := liner.NewLiner()
	state.SetCtrlCAborts(true)
	return &TerminalPrompter{state: state}
}

func (p *TerminalPrompter) Prompt(prompt string) (string, error) {
	return p.state.Prompt(prompt)
}

func (p *TerminalPrompter) PromptPassword(prompt string) (string, error) {
	return p.state.PasswordPrompt(prompt)
}

func (p *TerminalPrompter) Close() error {
	return p.state.Close()
}

var errorColor = color.New(color.FgRed)

// Session collects operator input, asking again until each answer is valid.
type Session struct {
	Prompter Prompter
	Out      io.Writer
	Config   *config.Operator
}

// Ask returns value when it passes validate, otherwise prompts until an
// answer does.
func (s *Session) Ask(value, question string, validate Validator) (string, error) {
	value = strings.TrimSpace(value)
	if value != "" {
		if err := validate(value); err != nil {
			return "", err
		}
		return value, nil
	}
	for {
		answer, err := s.Prompter.Prompt(question)
		if err != nil {
			return "", errors.Wrap(err, "read input")
		}
		answer = strings.TrimSpace(answer)
		if err := validate(answer); err != nil {
			errorColor.Fprintf(s.Out, "Error: %v\n", err)
			continue
		}
		return answer, nil
	}
}

// Network returns the chosen network name, lower-cased.
func (s *Session) Network(flag string) (string, error) {
	question := fmt.Sprintf("Select the network (%s): ", strings.Join(NetworkNames(), ", "))
	name, err := s.Ask(strings.ToLower(flag), question, ValidateNetwork)
	return strings.ToLower(name), err
}

// Endpoint resolves the node URL of network. An explicit rpc wins over the
// configured <NETWORK>_RPC_URL; when neither is set the operator is asked.
func (s *Session) Endpoint(network, rpc string) (string, error) {
	if rpc = strings.TrimSpace(rpc); rpc != "" {
		return rpc, nil
	}
	if url := s.Config.RPCURLs[network]; url != "" {
		return url, nil
	}
	return s.Ask("", fmt.Sprintf("Enter the %s node endpoint: ", network), ValidateRequired)
}

// Signer loads the operator key from the flag, then WALLET_PRIVATE_KEY, then
// a hidden prompt.
func (s *Session) Signer(keyFlag string) (*signer.Signer, error) {
	key := strings.TrimSpace(keyFlag)
	if key == "" {
		key = strings.TrimSpace(s.Config.PrivateKey)
	}
	if key != "" {
		if err := ValidatePrivateKey(key); err != nil {
			return nil, err
		}
		return signer.FromHex(key)
	}
	for {
		answer, err := s.Prompter.PromptPassword("Enter your private key (0x...): ")
		if err != nil {
			return nil, errors.Wrap(err, "read private key")
		}
		answer = strings.TrimSpace(answer)
		if err := ValidatePrivateKey(answer); err != nil {
			errorColor.Fprintf(s.Out, "Error: %v\n", err)
			continue
		}
		return signer.FromHex(answer)
	}
}

// NetworkNames lists the known networks in a stable order.
func NetworkNames() []string {
	names := make([]string, 0, len(config.Networks))
	for name := range config.Networks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
