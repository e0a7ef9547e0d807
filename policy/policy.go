// Package policy materializes Scotty's grants as customer managed IAM
// policies. Grant policies are named "<expiry>-<group>" so expiry and owner
// can be read off the name, and a housekeeping job can reap them after EOD.
package policy

import (
	"context"
	"regexp"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/pkg/errors"

	"github.com/scotty-bot/scotty/bot"
)

// maxVersions is the IAM quota on managed policy versions. Amending a policy
// at the quota first evicts the oldest non-default version.
const maxVersions = 5

// grantName matches the dated policy names the bot creates.
var grantName = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})-(.+)$`)

// Store implements bot.PolicyStore on the IAM API.
type Store struct {
	iam *iam.Client
	sts *sts.Client

	account string
}

// New constructs a Store. The STS client is only used once, to learn the
// account id policy ARNs are built from.
func New(iamClient *iam.Client, stsClient *sts.Client) *Store {
	return &Store{iam: iamClient, sts: stsClient}
}

func (s *Store) accountID(ctx context.Context) (string, error) {
	if s.account != "" {
		return s.account, nil
	}
	out, err := s.sts.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", errors.Wrap(err, "get caller identity")
	}
	s.account = aws.ToString(out.Account)
	return s.account, nil
}

// Groups lists the IAM groups user belongs to. A user unknown to IAM yields
// bot.ErrNotFound; the bot treats that as "group of one".
func (s *Store) Groups(ctx context.Context, user string) ([]string, error) {
	out, err := s.iam.ListGroupsForUser(ctx, &iam.ListGroupsForUserInput{
		UserName: aws.String(user),
	})
	var noEntity *iamtypes.NoSuchEntityException
	if errors.As(err, &noEntity) {
		return nil, bot.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "list groups for %s", user)
	}
	groups := make([]string, 0, len(out.Groups))
	for _, g := range out.Groups {
		groups = append(groups, aws.ToString(g.GroupName))
	}
	return groups, nil
}

// Ensure creates the named grant policy covering tables. When the name is
// already taken the existing policy is amended instead: its resource list
// becomes the union of old and new tables, published as a new default
// version. A repeat of an already-covered request amends nothing.
//
// Ensure reads then writes without a compare-and-swap; two concurrent amends
// of the same policy can lose one update. Lex serializes turns per session,
// so the race is limited to requests from different users.
func (s *Store) Ensure(ctx context.Context, name string, tables []string) (bot.EnsuredPolicy, error) {
	doc, err := s.Document(tables)
	if err != nil {
		return bot.EnsuredPolicy{}, err
	}

	created, err := s.iam.CreatePolicy(ctx, &iam.CreatePolicyInput{
		PolicyName:     aws.String(name),
		PolicyDocument: aws.String(doc),
		Description:    aws.String("Temporary DynamoDB read access granted by Scotty"),
	})
	if err == nil {
		return bot.EnsuredPolicy{ARN: aws.ToString(created.Policy.Arn), Created: true}, nil
	}
	var exists *iamtypes.EntityAlreadyExistsException
	if !errors.As(err, &exists) {
		return bot.EnsuredPolicy{}, errors.Wrapf(err, "create policy %s", name)
	}

	account, err := s.accountID(ctx)
	if err != nil {
		return bot.EnsuredPolicy{}, err
	}
	arn := "arn:aws:iam::" + account + ":policy/" + name

	existing, err := s.policyTables(ctx, arn)
	if err != nil {
		return bot.EnsuredPolicy{}, err
	}
	ensured := bot.EnsuredPolicy{ARN: arn, Existing: existing}

	merged, changed := union(existing, tables)
	if !changed {
		return ensured, nil
	}

	if err := s.pruneVersions(ctx, arn); err != nil {
		return bot.EnsuredPolicy{}, err
	}
	mergedDoc, err := s.Document(merged)
	if err != nil {
		return bot.EnsuredPolicy{}, err
	}
	_, err = s.iam.CreatePolicyVersion(ctx, &iam.CreatePolicyVersionInput{
		PolicyArn:      aws.String(arn),
		PolicyDocument: aws.String(mergedDoc),
		SetAsDefault:   true,
	})
	if err != nil {
		return bot.EnsuredPolicy{}, errors.Wrapf(err, "amend policy %s", name)
	}
	return ensured, nil
}

// Attach attaches the policy to group. Team names double as IAM group names;
// when no such group exists the name is retried as an individual user, which
// covers the "group of one" fallback.
func (s *Store) Attach(ctx context.Context, policyARN, group string) error {
	_, err := s.iam.AttachGroupPolicy(ctx, &iam.AttachGroupPolicyInput{
		GroupName: aws.String(group),
		PolicyArn: aws.String(policyARN),
	})
	var noEntity *iamtypes.NoSuchEntityException
	if !errors.As(err, &noEntity) {
		return errors.Wrapf(err, "attach policy to group %s", group)
	}

	_, err = s.iam.AttachUserPolicy(ctx, &iam.AttachUserPolicyInput{
		UserName:  aws.String(group),
		PolicyArn: aws.String(policyARN),
	})
	return errors.Wrapf(err, "attach policy to user %s", group)
}

// ActiveGrants lists the dated grant policies currently attached to group,
// oldest expiry first.
func (s *Store) ActiveGrants(ctx context.Context, group string) ([]bot.ActiveGrant, error) {
	out, err := s.iam.ListAttachedGroupPolicies(ctx, &iam.ListAttachedGroupPoliciesInput{
		GroupName: aws.String(group),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "list policies for group %s", group)
	}

	var grants []bot.ActiveGrant
	for _, attached := range out.AttachedPolicies {
		m := grantName.FindStringSubmatch(aws.ToString(attached.PolicyName))
		if m == nil {
			continue
		}
		tables, err := s.policyTables(ctx, aws.ToString(attached.PolicyArn))
		if err != nil {
			return nil, err
		}
		grants = append(grants, bot.ActiveGrant{Expiry: m[1], Tables: tables})
	}
	sort.Slice(grants, func(i, j int) bool { return grants[i].Expiry < grants[j].Expiry })
	return grants, nil
}

// policyTables fetches the default version of the policy at arn and returns
// the table names its document covers.
func (s *Store) policyTables(ctx context.Context, arn string) ([]string, error) {
	pol, err := s.iam.GetPolicy(ctx, &iam.GetPolicyInput{PolicyArn: aws.String(arn)})
	if err != nil {
		return nil, errors.Wrapf(err, "get policy %s", arn)
	}
	ver, err := s.iam.GetPolicyVersion(ctx, &iam.GetPolicyVersionInput{
		PolicyArn: aws.String(arn),
		VersionId: pol.Policy.DefaultVersionId,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "get policy version %s", arn)
	}
	return tablesFromDocument(aws.ToString(ver.PolicyVersion.Document))
}

// pruneVersions deletes the oldest non-default version when the policy is at
// the version quota, making room for the amendment about to be published.
func (s *Store) pruneVersions(ctx context.Context, arn string) error {
	out, err := s.iam.ListPolicyVersions(ctx, &iam.ListPolicyVersionsInput{
		PolicyArn: aws.String(arn),
	})
	if err != nil {
		return errors.Wrapf(err, "list versions of %s", arn)
	}
	if len(out.Versions) < maxVersions {
		return nil
	}

	var oldest *iamtypes.PolicyVersion
	for i := range out.Versions {
		v := &out.Versions[i]
		if v.IsDefaultVersion {
			continue
		}
		if oldest == nil || v.CreateDate.Before(*oldest.CreateDate) {
			oldest = v
		}
	}
	if oldest == nil {
		return nil
	}
	_, err = s.iam.DeletePolicyVersion(ctx, &iam.DeletePolicyVersionInput{
		PolicyArn: aws.String(arn),
		VersionId: oldest.VersionId,
	})
	return errors.Wrapf(err, "delete version %s of %s", aws.ToString(oldest.VersionId), arn)
}

// union merges add into base, preserving base order, and reports whether add
// contributed anything new.
func union(base, add []string) ([]string, bool) {
	merged := append([]string(nil), base...)
	changed := false
	for _, t := range add {
		seen := false
		for _, m := range merged {
			if m == t {
				seen = true
				break
			}
		}
		if !seen {
			merged = append(merged, t)
			changed = true
		}
	}
	return merged, changed
}
