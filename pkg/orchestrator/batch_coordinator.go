package orchestrator

import (
	"context"
	"fmt"
	"hash/fnv"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/relaycode/loom/pkg/config"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

const (
	workspaceLabelKey   = "loom.io/workspace"
	workspaceLabelValue = "task"

	// batchPollInterval is how often a dispatched job's status is re-read
	// while waiting for completion.
	batchPollInterval = 3 * time.Second
	// batchWaitCeiling bounds how long DispatchTask will block on one job
	// when wait_for_completion is set, independent of the caller's context.
	batchWaitCeiling = 45 * time.Minute
	// batchLogTailLines is how much of a finished pod's log is surfaced.
	batchLogTailLines = 4000
)

// BatchCoordinator dispatches one plan task as a Kubernetes Job: the task's
// identity travels in env vars, the container runs the same binary in
// single-task mode, and an optional per-task workspace volume carries the
// checkout. Job names are deterministic per (plan, task) so re-dispatching
// a task replaces its previous job instead of piling up new ones.
type BatchCoordinator struct {
	cfg       config.BatchConfig
	workflow  *WorkflowManager
	client    kubernetes.Interface
	namespace string
}

type BatchTaskResult struct {
	JobName      string
	RemoteBranch string
}

func NewBatchCoordinator(cfg config.BatchConfig, workflow *WorkflowManager) (*BatchCoordinator, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	client, err := buildKubeClient(cfg.Kubeconfig)
	if err != nil {
		return nil, err
	}
	return &BatchCoordinator{
		cfg:       cfg,
		workflow:  workflow,
		client:    client,
		namespace: detectNamespace(cfg.Namespace),
	}, nil
}

func (b *BatchCoordinator) Enabled() bool {
	return b != nil && b.client != nil && b.cfg.Enabled
}

// DispatchTask submits the task's job, replacing any prior job of the same
// name, and optionally blocks until it finishes.
func (b *BatchCoordinator) DispatchTask(ctx context.Context, plan *Plan, task *Task) (*BatchTaskResult, error) {
	if !b.Enabled() {
		return nil, fmt.Errorf("batch coordinator is not enabled")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	remoteBranch := b.remoteBranchForTask(plan, task)
	vars := b.templateVars(plan, task, remoteBranch)
	jobName := b.buildJobName(plan, task)
	job := b.buildJob(jobName, vars)

	if err := b.replaceJob(ctx, job); err != nil {
		recordJobFailure()
		return nil, err
	}
	recordJobDispatch()

	b.progress(fmt.Sprintf("Dispatched batch job %s for task %s%s", jobName, task.Title, branchSuffix(remoteBranch)))

	if b.cfg.WaitForCompletion {
		if err := b.waitForCompletion(ctx, jobName); err != nil {
			recordJobFailure()
			return nil, err
		}
		if b.cfg.FollowLogs {
			b.emitJobLogs(ctx, jobName)
		}
	}

	return &BatchTaskResult{JobName: jobName, RemoteBranch: remoteBranch}, nil
}

func branchSuffix(remoteBranch string) string {
	if remoteBranch == "" {
		return ""
	}
	return " (remote branch " + remoteBranch + ")"
}

func (b *BatchCoordinator) progress(msg string) {
	if b.workflow != nil {
		b.workflow.SendProgress(msg)
	}
}

// replaceJob deletes any existing job with the same name before creating
// the new one. Deterministic naming plus delete-before-create means a
// re-dispatched task takes over cleanly.
func (b *BatchCoordinator) replaceJob(ctx context.Context, job *batchv1.Job) error {
	jobs := b.client.BatchV1().Jobs(b.namespace)
	propagation := metav1.DeletePropagationBackground
	if err := jobs.Delete(ctx, job.Name, metav1.DeleteOptions{PropagationPolicy: &propagation}); err == nil {
		// Give the API server a moment to release the name before recreating.
		_ = wait.PollUntilContextTimeout(ctx, 200*time.Millisecond, 10*time.Second, true,
			func(ctx context.Context) (bool, error) {
				_, getErr := jobs.Get(ctx, job.Name, metav1.GetOptions{})
				return apierrors.IsNotFound(getErr), nil
			})
	}

	if _, err := jobs.Create(ctx, job, metav1.CreateOptions{}); err != nil {
		return fmt.Errorf("creating batch job %s: %w", job.Name, err)
	}
	return nil
}

// waitForCompletion polls the job until it reports a terminal condition.
// Failure is read from the job's Failed/Complete conditions rather than
// retry counting, so a job that exhausts its backoff and one killed by the
// active-deadline both surface the same way.
func (b *BatchCoordinator) waitForCompletion(ctx context.Context, jobName string) error {
	var terminal error
	err := wait.PollUntilContextTimeout(ctx, batchPollInterval, batchWaitCeiling, true,
		func(ctx context.Context) (bool, error) {
			job, err := b.client.BatchV1().Jobs(b.namespace).Get(ctx, jobName, metav1.GetOptions{})
			if err != nil {
				if apierrors.IsNotFound(err) {
					return false, fmt.Errorf("batch job %s disappeared before completion", jobName)
				}
				// Transient API hiccups shouldn't fail the wait; keep polling.
				return false, nil
			}
			switch jobTerminalCondition(job) {
			case batchv1.JobComplete:
				return true, nil
			case batchv1.JobFailed:
				terminal = fmt.Errorf("batch job %s failed after %d attempts", jobName, job.Status.Failed)
				return true, nil
			}
			return false, nil
		})
	if terminal != nil {
		return terminal
	}
	if err != nil {
		return fmt.Errorf("waiting for batch job %s: %w", jobName, err)
	}
	return nil
}

// jobTerminalCondition returns JobComplete or JobFailed when the job has
// reached that state, or "" while it is still running.
func jobTerminalCondition(job *batchv1.Job) batchv1.JobConditionType {
	for _, cond := range job.Status.Conditions {
		if cond.Status != corev1.ConditionTrue {
			continue
		}
		if cond.Type == batchv1.JobComplete || cond.Type == batchv1.JobFailed {
			return cond.Type
		}
	}
	// Older control planes may update counters before conditions.
	if job.Status.Succeeded > 0 {
		return batchv1.JobComplete
	}
	if job.Spec.BackoffLimit != nil && job.Status.Failed > *job.Spec.BackoffLimit {
		return batchv1.JobFailed
	}
	return ""
}

func (b *BatchCoordinator) emitJobLogs(ctx context.Context, jobName string) {
	logs, err := b.collectJobLogs(ctx, jobName)
	if err != nil {
		b.progress(fmt.Sprintf("Unable to read logs for job %s: %v", jobName, err))
		return
	}
	if strings.TrimSpace(logs) != "" {
		b.progress(fmt.Sprintf("Batch job %s log tail:\n%s", jobName, logs))
	}
}

// collectJobLogs tails the newest pod belonging to the job. The newest pod
// is the one that actually finished when the job retried.
func (b *BatchCoordinator) collectJobLogs(ctx context.Context, jobName string) (string, error) {
	pods, err := b.client.CoreV1().Pods(b.namespace).List(ctx, metav1.ListOptions{
		LabelSelector: "job-name=" + jobName,
	})
	if err != nil {
		return "", err
	}
	if len(pods.Items) == 0 {
		return "", fmt.Errorf("no pods for job %s", jobName)
	}
	sort.Slice(pods.Items, func(i, j int) bool {
		return pods.Items[i].CreationTimestamp.Time.After(pods.Items[j].CreationTimestamp.Time)
	})

	tail := int64(batchLogTailLines)
	stream, err := b.client.CoreV1().Pods(b.namespace).
		GetLogs(pods.Items[0].Name, &corev1.PodLogOptions{TailLines: &tail}).
		Stream(ctx)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	data, err := io.ReadAll(stream)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// CleanupWorkspaces deletes orphaned per-task workspace claims older than
// the cutoff. Claims still owned by a live job are skipped; the job's own
// TTL handles those.
func (b *BatchCoordinator) CleanupWorkspaces(ctx context.Context, olderThan time.Duration) (int, error) {
	if !b.Enabled() {
		return 0, fmt.Errorf("batch coordinator is not enabled")
	}
	if olderThan <= 0 {
		olderThan = 4 * time.Hour
	}

	pvcs, err := b.client.CoreV1().PersistentVolumeClaims(b.namespace).List(ctx, metav1.ListOptions{
		LabelSelector: workspaceLabelKey + "=" + workspaceLabelValue,
	})
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-olderThan)
	deleted := 0
	for i := range pvcs.Items {
		pvc := &pvcs.Items[i]
		if !workspaceClaimExpired(pvc, cutoff) {
			continue
		}
		err := b.client.CoreV1().PersistentVolumeClaims(b.namespace).Delete(ctx, pvc.Name, metav1.DeleteOptions{})
		if err != nil && !apierrors.IsNotFound(err) {
			return deleted, err
		}
		deleted++
	}
	recordWorkspacePrune(deleted)
	return deleted, nil
}

func workspaceClaimExpired(pvc *corev1.PersistentVolumeClaim, cutoff time.Time) bool {
	if pvc.CreationTimestamp.IsZero() || pvc.CreationTimestamp.Time.After(cutoff) {
		return false
	}
	// An owner reference means a job still holds the claim.
	return len(pvc.OwnerReferences) == 0
}

// buildJob assembles the Job manifest in stages: identity labels, the task
// container, then the volume set, so each concern reads on its own.
func (b *BatchCoordinator) buildJob(jobName string, vars map[string]string) *batchv1.Job {
	template := b.cfg.JobTemplate

	mountPath := strings.TrimSpace(template.WorkspaceMountPath)
	if mountPath == "" {
		mountPath = "/workspace"
	}
	vars["WORKSPACE_DIR"] = mountPath
	hasWorkspace := strings.TrimSpace(template.WorkspaceClaim) != "" || template.WorkspaceVolumeTemplate != nil

	labels := b.jobLabels(vars)
	container := b.taskContainer(template, vars, mountPath, hasWorkspace)
	volumes, mounts := b.jobVolumes(template, labels, mountPath)
	if len(mounts) > 0 {
		container.VolumeMounts = mounts
	}

	podSpec := corev1.PodSpec{
		Containers:         []corev1.Container{container},
		RestartPolicy:      corev1.RestartPolicyNever,
		ServiceAccountName: template.ServiceAccount,
	}
	if len(volumes) > 0 {
		podSpec.Volumes = volumes
	}
	for _, name := range template.ImagePullSecrets {
		podSpec.ImagePullSecrets = append(podSpec.ImagePullSecrets, corev1.LocalObjectReference{Name: name})
	}
	if len(template.NodeSelector) > 0 {
		podSpec.NodeSelector = template.NodeSelector
	}
	if len(template.Tolerations) > 0 {
		podSpec.Tolerations = template.Tolerations
	}
	if template.Affinity != nil {
		podSpec.Affinity = template.Affinity
	}

	backoff := template.BackoffLimit
	job := &batchv1.Job{
		ObjectMeta: metav1.ObjectMeta{
			Name:   jobName,
			Labels: labels,
		},
		Spec: batchv1.JobSpec{
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: labels},
				Spec:       podSpec,
			},
			BackoffLimit: &backoff,
		},
	}
	if template.TTLSecondsAfterFinished > 0 {
		ttl := template.TTLSecondsAfterFinished
		job.Spec.TTLSecondsAfterFinished = &ttl
	}
	return job
}

func (b *BatchCoordinator) jobLabels(vars map[string]string) map[string]string {
	return map[string]string{
		"app.kubernetes.io/name":       "loom",
		"app.kubernetes.io/managed-by": "loom",
		"loom.plan":                    truncateIdentifier(vars["PLAN_SLUG"], 30),
		"loom.task":                    truncateIdentifier(vars["TASK_SLUG"], 30),
	}
}

// taskContainer builds the single task container. Env assembly is a map:
// the coordinator's own vars first, conditional vars only when absent, and
// the operator's template env last so it can override anything.
func (b *BatchCoordinator) taskContainer(template config.BatchJobTemplateConfig, vars map[string]string, mountPath string, hasWorkspace bool) corev1.Container {
	env := map[string]string{
		"LOOM_PLAN_ID":       vars["PLAN_ID"],
		"LOOM_TASK_ID":       vars["TASK_ID"],
		"LOOM_TASK_TITLE":    vars["TASK_TITLE"],
		"LOOM_TASK_TYPE":     vars["TASK_TYPE"],
		"LOOM_FEATURE_NAME":  vars["FEATURE"],
		"LOOM_GIT_BRANCH":    vars["GIT_BRANCH"],
		"LOOM_BATCH_ENABLED": "0", // the job must never recursively batch-dispatch
	}
	if remote := vars["REMOTE_BRANCH"]; remote != "" {
		env["LOOM_REMOTE_BRANCH"] = remote
	}
	if name := vars["REMOTE_NAME"]; name != "" {
		env["LOOM_REMOTE_NAME"] = name
	}
	if hasWorkspace {
		env["LOOM_TASK_WORKDIR"] = mountPath
	}
	if repoURL := strings.TrimSpace(vars["REPO_URL"]); repoURL != "" {
		env["LOOM_PLAN_REPO_URL"] = repoURL
	}
	for key, value := range template.Env {
		env[key] = substituteVars(value, vars)
	}

	names := make([]string, 0, len(env))
	for name := range env {
		names = append(names, name)
	}
	sort.Strings(names)
	envVars := make([]corev1.EnvVar, 0, len(names))
	for _, name := range names {
		envVars = append(envVars, corev1.EnvVar{Name: name, Value: env[name]})
	}

	container := corev1.Container{
		Name:            "loom-task",
		Image:           template.Image,
		ImagePullPolicy: corev1.PullPolicy(template.ImagePullPolicy),
		Command:         substituteVarsAll(template.Command, vars),
		Args:            substituteVarsAll(template.Args, vars),
		Env:             envVars,
	}
	if hasWorkspace {
		container.WorkingDir = mountPath
	}
	if len(template.Resources.Limits) > 0 || len(template.Resources.Requests) > 0 {
		container.Resources = template.Resources
	}
	for _, name := range template.EnvFromSecrets {
		if name = strings.TrimSpace(name); name != "" {
			container.EnvFrom = append(container.EnvFrom, corev1.EnvFromSource{
				SecretRef: &corev1.SecretEnvSource{LocalObjectReference: corev1.LocalObjectReference{Name: name}},
			})
		}
	}
	for _, name := range template.EnvFromConfigMaps {
		if name = strings.TrimSpace(name); name != "" {
			container.EnvFrom = append(container.EnvFrom, corev1.EnvFromSource{
				ConfigMapRef: &corev1.ConfigMapEnvSource{LocalObjectReference: corev1.LocalObjectReference{Name: name}},
			})
		}
	}
	return container
}

// jobVolumes builds the pod's volume set: the per-task workspace (a fixed
// claim or an ephemeral template), the shared config claim, and the config
// file projection.
func (b *BatchCoordinator) jobVolumes(template config.BatchJobTemplateConfig, labels map[string]string, mountPath string) ([]corev1.Volume, []corev1.VolumeMount) {
	var volumes []corev1.Volume
	var mounts []corev1.VolumeMount

	switch {
	case strings.TrimSpace(template.WorkspaceClaim) != "":
		volumes = append(volumes, corev1.Volume{
			Name: "workspace",
			VolumeSource: corev1.VolumeSource{
				PersistentVolumeClaim: &corev1.PersistentVolumeClaimVolumeSource{
					ClaimName: strings.TrimSpace(template.WorkspaceClaim),
				},
			},
		})
		mounts = append(mounts, corev1.VolumeMount{Name: "workspace", MountPath: mountPath})

	case template.WorkspaceVolumeTemplate != nil:
		claimLabels := map[string]string{
			workspaceLabelKey: workspaceLabelValue,
			"loom.plan":       labels["loom.plan"],
			"loom.task":       labels["loom.task"],
		}
		volumes = append(volumes, corev1.Volume{
			Name: "workspace",
			VolumeSource: corev1.VolumeSource{
				Ephemeral: &corev1.EphemeralVolumeSource{
					VolumeClaimTemplate: &corev1.PersistentVolumeClaimTemplate{
						ObjectMeta: metav1.ObjectMeta{Labels: claimLabels},
						Spec:       workspaceClaimSpec(template.WorkspaceVolumeTemplate),
					},
				},
			},
		})
		mounts = append(mounts, corev1.VolumeMount{Name: "workspace", MountPath: mountPath})
	}

	if claim := strings.TrimSpace(template.SharedConfigClaim); claim != "" {
		sharedPath := strings.TrimSpace(template.SharedConfigMountPath)
		if sharedPath == "" {
			sharedPath = "/loom/shared"
		}
		volumes = append(volumes, corev1.Volume{
			Name: "shared-config",
			VolumeSource: corev1.VolumeSource{
				PersistentVolumeClaim: &corev1.PersistentVolumeClaimVolumeSource{ClaimName: claim},
			},
		})
		mounts = append(mounts, corev1.VolumeMount{Name: "shared-config", MountPath: sharedPath})
	}

	if name := strings.TrimSpace(template.ConfigMap); name != "" {
		configPath := strings.TrimSpace(template.ConfigMapMountPath)
		if configPath == "" {
			configPath = "/home/loom/.loom/config.yaml"
		}
		volumes = append(volumes, corev1.Volume{
			Name: "config",
			VolumeSource: corev1.VolumeSource{
				ConfigMap: &corev1.ConfigMapVolumeSource{
					LocalObjectReference: corev1.LocalObjectReference{Name: name},
				},
			},
		})
		mounts = append(mounts, corev1.VolumeMount{
			Name:      "config",
			MountPath: configPath,
			SubPath:   "config.yaml",
			ReadOnly:  true,
		})
	}

	return volumes, mounts
}

func workspaceClaimSpec(tpl *config.BatchVolumeTemplateConfig) corev1.PersistentVolumeClaimSpec {
	size := strings.TrimSpace(tpl.Size)
	if size == "" {
		size = "20Gi"
	}
	spec := corev1.PersistentVolumeClaimSpec{
		AccessModes: parseAccessModes(tpl.AccessModes),
		Resources: corev1.VolumeResourceRequirements{
			Requests: corev1.ResourceList{
				corev1.ResourceStorage: resource.MustParse(size),
			},
		},
	}
	if class := strings.TrimSpace(tpl.StorageClass); class != "" {
		spec.StorageClassName = &class
	}
	return spec
}

func parseAccessModes(raw []string) []corev1.PersistentVolumeAccessMode {
	if len(raw) == 0 {
		return []corev1.PersistentVolumeAccessMode{corev1.ReadWriteOnce}
	}
	modes := make([]corev1.PersistentVolumeAccessMode, 0, len(raw))
	for _, mode := range raw {
		switch strings.ToLower(strings.TrimSpace(mode)) {
		case "readwritemany":
			modes = append(modes, corev1.ReadWriteMany)
		case "readonlymany":
			modes = append(modes, corev1.ReadOnlyMany)
		default:
			modes = append(modes, corev1.ReadWriteOnce)
		}
	}
	return modes
}

func (b *BatchCoordinator) templateVars(plan *Plan, task *Task, remoteBranch string) map[string]string {
	return map[string]string{
		"PLAN_ID":       plan.ID,
		"PLAN_SLUG":     slugOrFallback(plan.ID, plan.FeatureName),
		"TASK_ID":       task.ID,
		"TASK_TITLE":    task.Title,
		"TASK_TYPE":     string(task.Type),
		"TASK_SLUG":     slugOrFallback(task.ID, task.Title),
		"FEATURE":       plan.FeatureName,
		"REPO_URL":      plan.Context.GitRemoteURL,
		"GIT_BRANCH":    plan.Context.GitBranch,
		"REMOTE_BRANCH": remoteBranch,
		"REMOTE_NAME":   b.cfg.RemoteBranch.RemoteName,
		"NAMESPACE":     b.namespace,
	}
}

func slugOrFallback(primary, fallback string) string {
	if slug := kubeSlug(primary); slug != "" {
		return slug
	}
	return kubeSlug(fallback)
}

// templatePlaceholder matches both [[VAR]] and {{VAR}} placeholders in one
// pass over the string.
var templatePlaceholder = regexp.MustCompile(`\[\[([A-Z_][A-Z0-9_]*)\]\]|\{\{([A-Z_][A-Z0-9_]*)\}\}`)

func substituteVars(value string, vars map[string]string) string {
	return templatePlaceholder.ReplaceAllStringFunc(value, func(match string) string {
		groups := templatePlaceholder.FindStringSubmatch(match)
		key := groups[1]
		if key == "" {
			key = groups[2]
		}
		if replacement, ok := vars[key]; ok {
			return replacement
		}
		return match
	})
}

func substituteVarsAll(values []string, vars map[string]string) []string {
	if len(values) == 0 {
		return nil
	}
	rendered := make([]string, len(values))
	for i, val := range values {
		rendered[i] = substituteVars(val, vars)
	}
	return rendered
}

// buildJobName derives a deterministic, DNS-safe name from the plan and
// task ids: slugs for readability, a short hash for uniqueness once the
// slugs are truncated.
func (b *BatchCoordinator) buildJobName(plan *Plan, task *Task) string {
	planSlug := truncateIdentifier(slugOrFallback(plan.ID, plan.FeatureName), 20)
	taskSlug := truncateIdentifier(slugOrFallback(task.ID, task.Title), 20)

	h := fnv.New32a()
	fmt.Fprintf(h, "%s/%s", plan.ID, task.ID)

	return truncateIdentifier(fmt.Sprintf("loom-%s-%s-%08x", planSlug, taskSlug, h.Sum32()), 63)
}

func truncateIdentifier(value string, max int) string {
	cleaned := strings.Trim(kubeSlug(value), "-")
	if cleaned == "" {
		cleaned = "loom"
	}
	if len(cleaned) <= max {
		return cleaned
	}
	return strings.Trim(cleaned[:max], "-")
}

func (b *BatchCoordinator) remoteBranchForTask(plan *Plan, task *Task) string {
	if !b.cfg.RemoteBranch.Enabled {
		return ""
	}
	branch := b.cfg.RemoteBranch.Prefix + slugOrFallback(plan.FeatureName, plan.ID) + "-" + slugOrFallback(task.Title, task.ID)
	return strings.Trim(branch, "-/")
}

// buildKubeClient resolves the API client from, in order: an explicit
// kubeconfig path, the in-cluster service account, then ~/.kube/config.
func buildKubeClient(kubeconfig string) (kubernetes.Interface, error) {
	if path := strings.TrimSpace(kubeconfig); path != "" {
		cfg, err := clientcmd.BuildConfigFromFlags("", path)
		if err != nil {
			return nil, fmt.Errorf("failed to load kubeconfig %s: %w", path, err)
		}
		return kubernetes.NewForConfig(cfg)
	}

	cfg, err := rest.InClusterConfig()
	if err == nil {
		return kubernetes.NewForConfig(cfg)
	}

	home, herr := os.UserHomeDir()
	if herr != nil {
		return nil, fmt.Errorf("failed to create in-cluster config: %w", err)
	}
	path := filepath.Join(home, ".kube", "config")
	cfg, err = clientcmd.BuildConfigFromFlags("", path)
	if err != nil {
		return nil, fmt.Errorf("failed to load kubeconfig %s: %w", path, err)
	}
	return kubernetes.NewForConfig(cfg)
}

func detectNamespace(explicit string) string {
	if ns := strings.TrimSpace(explicit); ns != "" {
		return ns
	}
	if data, err := os.ReadFile("/var/run/secrets/kubernetes.io/serviceaccount/namespace"); err == nil {
		if ns := strings.TrimSpace(string(data)); ns != "" {
			return ns
		}
	}
	if ns := strings.TrimSpace(os.Getenv("POD_NAMESPACE")); ns != "" {
		return ns
	}
	return "default"
}

func kubeSlug(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return ""
	}
	var b strings.Builder
	prevDash := false
	for _, r := range value {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			prevDash = false
		case r == '-' || r == '_' || r == '/' || r == '.':
			if !prevDash {
				b.WriteRune('-')
				prevDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}
