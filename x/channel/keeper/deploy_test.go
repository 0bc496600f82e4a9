package keeper_test

import (
	"strings"

	"github.com/zkchannel/zkchannel/x/channel/client"
	"github.com/zkchannel/zkchannel/x/channel/types"
)

func (s *KeeperTestSuite) TestDeployRecordsImage() {
	record, err := s.keeper.GetDeployment(s.ctx, testImageID)
	s.Require().NoError(err)
	s.Require().Equal(s.requester, record.Owner)
	s.Require().Equal("hexagram", record.ProgramName)
	s.Require().True(record.Accepts(types.InputTypePrivate))
	s.Require().False(record.Accepts(types.InputTypePublicURL))

	addr, _, err := types.DeploymentAddress(testImageID)
	s.Require().NoError(err)
	acct := s.account(addr)
	s.Require().Equal(types.ProgramID, acct.Owner)
	s.Require().True(s.params().Rent.IsExempt(acct.Lamports, len(acct.Data)))
	s.requireInvariants()
}

func (s *KeeperTestSuite) TestDeployFailures() {
	otherImage := strings.Repeat("ab", 32)

	testCases := []struct {
		name string
		ix   func() types.Instruction
		err  error
	}{
		{
			name: "already deployed",
			ix:   func() types.Instruction { return s.deployInstruction(testImageID) },
			err:  types.ErrAlreadyDeployed,
		},
		{
			name: "wrong deployment account",
			ix: func() types.Instruction {
				ix := s.deployInstruction(otherImage)
				ix.Accounts[2].Address = s.prover
				return ix
			},
			err: types.ErrInvalidDeploymentAccount,
		},
		{
			name: "invalid image id",
			ix: func() types.Instruction {
				ix, err := client.DeployInstruction(s.requester, s.requester, &types.DeployV1{
					ImageID:            "zz",
					ProgramName:        "bad",
					URL:                "https://x",
					AcceptedInputTypes: []types.InputType{types.InputTypePublicData},
				})
				s.Require().NoError(err)
				return ix
			},
			err: types.ErrInvalidImageID,
		},
		{
			name: "deployer did not sign",
			ix: func() types.Instruction {
				ix := s.deployInstruction(otherImage)
				ix.Accounts[0].IsSigner = false
				ix.Accounts[1].IsSigner = false
				return ix
			},
			err: types.ErrMissingSignature,
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			s.SetupTest()
			s.Require().ErrorIs(s.run(tc.ix(), s.requester), tc.err)
			s.requireInvariants()
		})
	}
}
