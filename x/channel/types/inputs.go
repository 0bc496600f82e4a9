package types

import "fmt"

// InputType tells the prover how to obtain an input.
type InputType uint8

const (
	InputTypePublicData InputType = iota
	InputTypePublicURL
	InputTypePublicAccountData
	InputTypePrivate
	InputTypePublicProof
	InputTypeInputSet
)

var inputTypeNames = map[InputType]string{
	InputTypePublicData:        "public_data",
	InputTypePublicURL:         "public_url",
	InputTypePublicAccountData: "public_account_data",
	InputTypePrivate:           "private",
	InputTypePublicProof:       "public_proof",
	InputTypeInputSet:          "input_set",
}

func (t InputType) String() string {
	if name, ok := inputTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("input_type(%d)", uint8(t))
}

func (t InputType) IsValid() bool {
	_, ok := inputTypeNames[t]
	return ok
}

// ParseInputType is the inverse of InputType.String.
func ParseInputType(s string) (InputType, error) {
	for t, name := range inputTypeNames {
		if name == s {
			return t, nil
		}
	}
	return 0, ErrInvalidInputs.Wrapf("unknown input type %q", s)
}

// Input is one entry of an execution request. Data holds raw bytes, a URL,
// an account address or an input set reference depending on Type.
type Input struct {
	Type InputType `json:"type"`
	Data []byte    `json:"data"`
}

// CallbackAccount is an extra account forwarded to the callback program.
type CallbackAccount struct {
	Address  Address `json:"address"`
	Writable bool    `json:"writable"`
}

// CallbackConfig names the program invoked after a verified proof.
type CallbackConfig struct {
	ProgramID         Address           `json:"program_id"`
	InstructionPrefix []byte            `json:"instruction_prefix"`
	ExtraAccounts     []CallbackAccount `json:"extra_accounts"`
}
